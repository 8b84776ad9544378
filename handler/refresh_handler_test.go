package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"main/services"
	"main/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func newRefreshRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auth/refresh", RefreshHandler)
	return router
}

func doRefresh(router *gin.Engine, bearer string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRefreshHandlerIssuesNewTokens(t *testing.T) {
	os.Setenv("GO_ENV", "test")
	utils.InitJWT()
	router := newRefreshRouter()

	refreshToken, err := services.GenerateRefreshToken("user-1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	w := doRefresh(router, refreshToken)

	t.Logf("Status: %d, body: %s", w.Code, w.Body.String())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Data struct {
			Token   string `json:"token"`
			Refresh string `json:"refresh"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Data.Token == "" || resp.Data.Refresh == "" {
		t.Fatal("refresh did not return a new token pair")
	}

	// The new access token must carry access claims for the same user.
	parsed, err := jwt.Parse(resp.Data.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte(utils.JWTSecretKey), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("new access token is not valid: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["type"] != "access" {
		t.Errorf("type claim = %v, want access", claims["type"])
	}
	if claims["user_id"] != "user-1" {
		t.Errorf("user_id claim = %v, want user-1", claims["user_id"])
	}
}

func TestRefreshHandlerRejectsAccessToken(t *testing.T) {
	os.Setenv("GO_ENV", "test")
	utils.InitJWT()
	router := newRefreshRouter()

	accessToken, err := services.GenerateToken("user-1")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	w := doRefresh(router, accessToken)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d: access tokens must not refresh", w.Code, http.StatusUnauthorized)
	}
}

func TestRefreshHandlerRejectsGarbage(t *testing.T) {
	os.Setenv("GO_ENV", "test")
	utils.InitJWT()
	router := newRefreshRouter()

	tests := []struct {
		name   string
		bearer string
	}{
		{name: "Missing header", bearer: ""},
		{name: "Not a JWT", bearer: "definitely-not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRefresh(router, tt.bearer)

			t.Logf("Status: %d", w.Code)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}
