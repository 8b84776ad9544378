package services

import (
	"context"
	"log"
	"sync"
	"time"

	"main/model"
	"main/utils"
)

const DefaultHeartbeatInterval = 15 * time.Second

// SessionClientOptions carries the hooks a device wires into its session
// client. All hooks are optional.
type SessionClientOptions struct {
	HeartbeatInterval time.Duration
	Notify            func(message string)
	Refresh           func()
	SignOut           func()
}

// SessionClient owns everything that makes one logged-in device a live
// session: the raw token, the registered hash, the heartbeat ticker and the
// change-feed subscription. Construct one per authenticated device and
// release it with Close; nothing here leaks across that boundary.
type SessionClient struct {
	store     *TokenStore
	registrar *SessionRegistrar
	sessions  SessionStore
	feed      ChangeFeed
	user      *model.User
	opts      SessionClientOptions

	hash string
	sub  FeedSubscription

	done        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
	signOutOnce sync.Once
}

func NewSessionClient(user *model.User, registrar *SessionRegistrar, feed ChangeFeed, opts SessionClientOptions) *SessionClient {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return &SessionClient{
		store:     NewTokenStore(),
		registrar: registrar,
		sessions:  registrar.Sessions,
		feed:      feed,
		user:      user,
		opts:      opts,
		done:      make(chan struct{}),
	}
}

// Hash returns the registered token hash, empty before Start.
func (c *SessionClient) Hash() string {
	return c.hash
}

// Start registers the session and launches the heartbeat and change-feed
// loops. It reports whether other sessions were already live for the user.
// A failed registration is logged and retried implicitly: the loops start
// anyway and the next login attempt re-registers.
func (c *SessionClient) Start(ctx context.Context, userAgent, ip string) (bool, error) {
	hash, err := c.store.Hash()
	if err != nil {
		return false, err
	}
	c.hash = hash

	hadOthers, err := c.registrar.RegisterSession(ctx, c.user, hash, userAgent, ip)
	if err != nil {
		log.Printf("Warning: session registration failed: %v", err)
	}

	if c.feed != nil {
		sub, err := c.feed.Subscribe(ctx, c.user.UserID)
		if err != nil {
			utils.TrackError("session_client", "subscribe_failed")
			log.Printf("Warning: failed to subscribe to session events: %v", err)
		} else {
			c.sub = sub
			c.wg.Add(1)
			go c.eventLoop()
		}
	}

	c.wg.Add(1)
	go c.heartbeatLoop()

	return hadOthers, nil
}

func (c *SessionClient) heartbeatLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_, err := c.sessions.Touch(ctx, c.hash)
			cancel()
			if err != nil {
				// Transient and self-healing on the next tick.
				utils.TrackError("heartbeat", "touch_failed")
				log.Printf("Warning: heartbeat failed: %v", err)
			}
		}
	}
}

func (c *SessionClient) eventLoop() {
	defer c.wg.Done()

	for msg := range c.sub.Messages() {
		if c.closed() {
			// Late delivery after Close is dropped, not applied.
			return
		}
		c.apply(Reduce(ClassifyChange(msg, c.hash)))
	}
}

func (c *SessionClient) apply(r Reaction) {
	if r.Notify != "" && c.opts.Notify != nil {
		c.opts.Notify(r.Notify)
	}
	if r.Refresh && c.opts.Refresh != nil {
		c.opts.Refresh()
	}
	if r.ForceSignOut {
		// Repeated remote-kill events must not sign out twice.
		c.signOutOnce.Do(func() {
			c.store.Clear()
			if c.opts.SignOut != nil {
				c.opts.SignOut()
			}
		})
	}
}

func (c *SessionClient) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close stops the heartbeat and the subscription and waits for both loops.
// Safe to call more than once.
func (c *SessionClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.sub != nil {
			if err := c.sub.Close(); err != nil {
				log.Printf("Warning: failed to close feed subscription: %v", err)
			}
		}
	})
	c.wg.Wait()
}
