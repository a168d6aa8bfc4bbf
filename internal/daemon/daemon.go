package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/murmur-app/murmur/internal/config"
	configstore "github.com/murmur-app/murmur/internal/config/store"
	"github.com/murmur-app/murmur/internal/eventbus"
	"github.com/murmur-app/murmur/internal/gateway"
	"github.com/murmur-app/murmur/internal/overlay"
	"github.com/murmur-app/murmur/internal/overlay/geometry"
)

// DefaultAddr is where the gateway HTTP server listens when no address is
// configured. Loopback only; the backend and renderer run on the same host.
const DefaultAddr = "127.0.0.1:48620"

// Options configures a daemon instance.
type Options struct {
	InstanceName string
	ProfileName  string
	Addr         string             // Gateway listen address (defaults to DefaultAddr)
	Store        *configstore.Store // Required: opened overlay store
	Logger       *log.Logger
}

// Daemon wires the overlay core together: bus, overlay service, websocket
// gateway, geometry debouncer and the SQLite-backed store.
type Daemon struct {
	opts  Options
	paths config.InstancePaths

	store     *configstore.Store
	bus       *eventbus.Bus
	overlay   *overlay.Service
	gateway   *gateway.Server
	debouncer *geometry.Debouncer
	logger    *log.Logger

	httpServer *http.Server
	windowSub  *eventbus.TypedSubscription[eventbus.WindowChangedEvent]

	mu        sync.Mutex
	boundAddr string

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a daemon from the given options.
func New(opts Options) (*Daemon, error) {
	if opts.Store == nil {
		return nil, errors.New("daemon: store is required")
	}
	if opts.InstanceName == "" {
		opts.InstanceName = config.DefaultInstance
	}
	if opts.ProfileName == "" {
		opts.ProfileName = config.DefaultProfile
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Daemon{
		opts:   opts,
		paths:  config.GetInstancePaths(opts.InstanceName),
		store:  opts.Store,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// Start builds and starts all services, then serves the gateway endpoint.
// It blocks until Shutdown is called or the HTTP server fails.
func (d *Daemon) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	defer close(d.done)

	if err := writeLockFile(d.paths.Lock, os.Getpid()); err != nil {
		return fmt.Errorf("daemon: acquire lock: %w", err)
	}
	defer removeLockFile(d.paths.Lock)

	d.bus = eventbus.New(eventbus.WithLogger(d.logger))

	d.gateway = gateway.NewServer(d.bus, gateway.WithLogger(d.logger))

	commands := &compositeCommands{
		backend: d.gateway.Commands(),
		store:   d.store,
	}

	overlayOpts := []overlay.Option{
		overlay.WithLogger(d.logger),
		overlay.WithCommands(commands),
	}
	if delay := d.dismissDelayFromSettings(ctx); delay > 0 {
		overlayOpts = append(overlayOpts, overlay.WithDismissDelay(delay))
	}
	d.overlay = overlay.NewService(d.bus, overlayOpts...)
	d.gateway.SetActions(d.overlay)

	// Bounds persistence goes through the same command surface the overlay
	// uses, not straight to the store.
	d.debouncer = geometry.NewDebouncer(d.gateway, commands,
		geometry.WithLogger(d.logger))

	if err := d.overlay.Start(ctx); err != nil {
		return fmt.Errorf("daemon: start overlay service: %w", err)
	}
	if err := d.gateway.Start(ctx); err != nil {
		return fmt.Errorf("daemon: start gateway: %w", err)
	}

	d.windowSub = eventbus.SubscribeTo(d.bus, eventbus.Window.Changed,
		eventbus.WithSubscriptionName("daemon-window"))
	go eventbus.Consume(ctx, d.windowSub, nil, func(eventbus.WindowChangedEvent) {
		d.debouncer.Notify()
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", d.gateway.HandleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	listener, err := net.Listen("tcp", d.opts.Addr)
	if err != nil {
		return fmt.Errorf("daemon: listen on %s: %w", d.opts.Addr, err)
	}

	d.mu.Lock()
	d.boundAddr = listener.Addr().String()
	d.mu.Unlock()

	d.httpServer = &http.Server{Handler: mux}
	d.logger.Printf("[Daemon] gateway listening on %s", listener.Addr())

	if err := d.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("daemon: serve gateway: %w", err)
	}
	return nil
}

// Shutdown stops all services in reverse start order.
func (d *Daemon) Shutdown() error {
	ctx, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelTimeout()

	var firstErr error

	if d.httpServer != nil {
		if err := d.httpServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("daemon: shutdown http server: %w", err)
		}
	}
	if d.windowSub != nil {
		d.windowSub.Close()
	}
	if d.debouncer != nil {
		d.debouncer.Close()
	}
	if d.gateway != nil {
		if err := d.gateway.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("daemon: shutdown gateway: %w", err)
		}
	}
	if d.overlay != nil {
		if err := d.overlay.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("daemon: shutdown overlay service: %w", err)
		}
	}
	if d.bus != nil {
		d.bus.Shutdown()
	}
	if d.cancel != nil {
		d.cancel()
	}

	<-d.done
	return firstErr
}

// Addr returns the bound gateway address once Start has opened the
// listener, falling back to the configured address before that.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.boundAddr != "" {
		return d.boundAddr
	}
	return d.opts.Addr
}

// dismissDelayFromSettings reads the configured auto-dismiss delay from the
// store. Zero means not configured or unparseable; the overlay default
// applies.
func (d *Daemon) dismissDelayFromSettings(ctx context.Context) time.Duration {
	settings, err := d.store.LoadSettings(ctx, configstore.SettingDismissDelay)
	if err != nil {
		d.logger.Printf("[Daemon] load overlay settings: %v", err)
		return 0
	}
	raw, ok := settings[configstore.SettingDismissDelay]
	if !ok {
		return 0
	}
	delay, err := time.ParseDuration(raw)
	if err != nil {
		d.logger.Printf("[Daemon] invalid %s value %q: %v",
			configstore.SettingDismissDelay, raw, err)
		return 0
	}
	return delay
}

// compositeCommands routes overlay commands to their targets: backend
// commands travel through the gateway, window bounds go to the store. It is
// both the overlay's command surface and the geometry debouncer's saver.
type compositeCommands struct {
	backend *gateway.BackendCommands
	store   *configstore.Store
}

var (
	_ overlay.Commands = (*compositeCommands)(nil)
	_ geometry.Saver   = (*compositeCommands)(nil)
)

func (c *compositeCommands) CancelRecording(ctx context.Context) error {
	return c.backend.CancelRecording(ctx)
}

func (c *compositeCommands) DismissAskAI(ctx context.Context) error {
	return c.backend.DismissAskAI(ctx)
}

func (c *compositeCommands) StartNewConversation(ctx context.Context) error {
	return c.backend.StartNewConversation(ctx)
}

func (c *compositeCommands) SaveWindowBounds(ctx context.Context, bounds geometry.Bounds) error {
	return c.store.SaveWindowBounds(ctx, bounds)
}
