package services

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"main/utils"
)

// NewDeviceAlert is the payload sent to the external new-device-alert
// function (email/SMS fan-out happens on the other side).
type NewDeviceAlert struct {
	Email      string    `json:"email"`
	DeviceName string    `json:"device_name"`
	DeviceType string    `json:"device_type"`
	Browser    string    `json:"browser"`
	Timestamp  time.Time `json:"timestamp"`
}

// AlertService invokes the external alert endpoint. Delivery is
// fire-and-forget: failures are logged and counted, never propagated.
type AlertService struct {
	Endpoint string
	Client   *http.Client
}

func NewAlertService() *AlertService {
	return &AlertService{
		Endpoint: utils.GetEnvAsString("NEW_DEVICE_ALERT_URL", ""),
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// GlobalAlertService is wired at startup; nil disables outbound alerts.
var GlobalAlertService *AlertService

// SendNewDeviceAlert posts the alert in the background.
func (a *AlertService) SendNewDeviceAlert(alert NewDeviceAlert) {
	if a.Endpoint == "" {
		utils.TrackAlert("disabled")
		return
	}

	go func() {
		data, err := json.Marshal(alert)
		if err != nil {
			utils.TrackAlert("failed")
			log.Printf("Warning: failed to marshal new-device alert: %v", err)
			return
		}

		resp, err := a.Client.Post(a.Endpoint, "application/json", bytes.NewReader(data))
		if err != nil {
			utils.TrackAlert("failed")
			utils.TrackError("alert", "post_failed")
			log.Printf("Warning: failed to send new-device alert: %v", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			utils.TrackAlert("failed")
			utils.TrackError("alert", "bad_status")
			log.Printf("Warning: new-device alert returned status %d", resp.StatusCode)
			return
		}

		utils.TrackAlert("sent")
	}()
}
