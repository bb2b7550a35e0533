package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"skystreak/db"
	"skystreak/models"
	"skystreak/streak"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

type ServerConfig struct {

	// The streak store for best-effort reads of the last computed record
	Store *db.Store

	// One orchestrator per tracked handle
	Orchestrators map[string]*streak.Orchestrator

	// Broadcast channel to pass streak events to SSE clients
	Broadcaster *Broadcaster
}

type sseClient struct {
	handle string
	events chan interface{}
}

// Broadcaster fans streak events out to SSE clients. It is the display
// collaborator the orchestrators deliver to.
type Broadcaster struct {
	sync.RWMutex
	clients map[string]*sseClient
}

// Constructor
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]*sseClient),
	}
}

// AddClient registers an SSE client interested in one handle and returns its
// event channel.
func (b *Broadcaster) AddClient(key string, handle string) chan interface{} {
	b.Lock()
	defer b.Unlock()

	client := &sseClient{
		handle: handle,
		events: make(chan interface{}, 10), // Buffered channel
	}
	b.clients[key] = client

	log.WithFields(log.Fields{
		"key":    key,
		"handle": handle,
		"count":  len(b.clients),
	}).Info("Adding client to broadcaster")

	return client.events
}

// RemoveClient unregisters an SSE client and closes its channel.
func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()

	if client, ok := b.clients[key]; ok {
		close(client.events)
		delete(b.clients, key)
	}

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Removed client from broadcaster")
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, client := range b.clients {
		close(client.events)
		delete(b.clients, key)
	}
}

func (b *Broadcaster) publish(handle string, event interface{}) {
	b.RLock()
	defer b.RUnlock()

	for key, client := range b.clients {
		if client.handle != handle {
			continue
		}
		select {
		case client.events <- event: // Non-blocking send
		default:
			log.Warnf("Client channel full, skipping event for client: %v", key)
		}
	}
}

// ShowRefreshing implements streak.Display
func (b *Broadcaster) ShowRefreshing(handle string) {
	b.publish(handle, models.RefreshingEvent{Handle: handle})
}

// ShowStreak implements streak.Display
func (b *Broadcaster) ShowStreak(result models.StreakResult) {
	b.publish(result.Handle, models.StreakEvent{Result: result})
}

// ShowError implements streak.Display
func (b *Broadcaster) ShowError(handle string, message string) {
	b.publish(handle, models.ErrorEvent{Handle: handle, Message: message})
}

// Returns a fiber.App instance to be used as an HTTP server for skystreak
func Server(config *ServerConfig) *fiber.App {

	bc := config.Broadcaster

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))

	// SSE responses must not be compressed
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasSuffix(c.Path(), "/sse")
		},
	}))

	app.Use(cors.New(cors.Config{
		AllowHeaders: "Cache-Control",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Returns the last persisted record for display continuity and schedules
	// a debounced recomputation. The authoritative result arrives on the SSE
	// stream once the run completes.
	app.Get("/streak/:handle", func(c *fiber.Ctx) error {
		handle := c.Params("handle")

		orchestrator, ok := config.Orchestrators[handle]
		if !ok {
			return c.Status(404).SendString("Unknown handle")
		}

		record, err := config.Store.Get(c.Context(), handle)
		if err != nil {
			log.WithFields(log.Fields{
				"handle": handle,
				"error":  err,
			}).Error("Error reading streak record")
			return c.Status(500).SendString("Error reading streak record")
		}

		orchestrator.Ready(context.Background())

		return c.JSON(map[string]interface{}{
			"handle":     handle,
			"record":     record,
			"refreshing": true,
		})
	})

	// Refresh bypasses the debounce and recomputes from scratch. A refresh
	// while another run is in flight is dropped.
	app.Post("/streak/:handle/refresh", func(c *fiber.Ctx) error {
		handle := c.Params("handle")

		orchestrator, ok := config.Orchestrators[handle]
		if !ok {
			return c.Status(404).SendString("Unknown handle")
		}

		if !orchestrator.Refresh(context.Background()) {
			return c.Status(409).SendString("Refresh already in progress")
		}

		return c.Status(202).SendString("Refreshing")
	})

	app.Get("/streak/:handle/sse", func(c *fiber.Ctx) error {
		handle := c.Params("handle")

		orchestrator, ok := config.Orchestrators[handle]
		if !ok {
			return c.Status(404).SendString("Unknown handle")
		}

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("Transfer-Encoding", "chunked")

		// Unique client key
		key := uuid.New().String()
		events := bc.AddClient(key, handle)
		aliveChan := time.NewTicker(5 * time.Second)

		defer aliveChan.Stop()

		cleanup := func() {
			log.Infof("Cleaning up SSE stream for client: %s", key)
			bc.RemoveClient(key)
		}

		// A connecting client counts as a readiness signal
		orchestrator.Ready(context.Background())

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer cleanup()

			// Send initial event with client key
			fmt.Fprintf(w, "event: init\ndata: %s\n\n", key)
			if err := w.Flush(); err != nil {
				log.Errorf("Failed to send init event: %v", err)
				return
			}

			for {
				select {
				case <-aliveChan.C:
					// Send keep-alive pings
					if _, err := fmt.Fprintf(w, "event: ping\ndata: \n\n"); err != nil {
						log.Warnf("Failed to send ping to client %s: %v", key, err)
						return
					}
					if err := w.Flush(); err != nil {
						log.Warnf("Failed to flush ping for client %s: %v", key, err)
						return
					}

				case event, ok := <-events:
					if !ok {
						log.Warnf("Event channel closed for client %s", key)
						return
					}
					if err := writeEvent(w, event); err != nil {
						log.Warnf("Failed to send event to client %s: %v", key, err)
						return
					}
				}
			}
		}))

		return nil
	})

	return app
}

func writeEvent(w *bufio.Writer, event interface{}) error {
	var name string
	var payload interface{}

	switch event := event.(type) {
	case models.RefreshingEvent:
		name = "refreshing"
		payload = event
	case models.StreakEvent:
		name = "streak"
		payload = event.Result
	case models.ErrorEvent:
		name = "error"
		payload = event
	default:
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return w.Flush()
}
