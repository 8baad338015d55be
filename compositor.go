package compositor

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("compositor: closed")

// Compositor keeps a client-side DisplayNode tree and a Host tree
// consistent. Node mutations are queued as transactions from any goroutine;
// Dispatch applies them to the host in one batch on the host context, a
// single goroutine owned by the compositor through which every Host call is
// made.
type Compositor struct {
	host    Host
	mode    CompositionMode
	cfg     Config
	log     zerolog.Logger
	metrics *Metrics
	reg     prometheus.Registerer
	fonts   *FontRegistry

	mu      sync.Mutex
	pending *Transactions

	treeMu sync.Mutex

	rootsMu sync.Mutex
	roots   map[*DisplayNode]Ref[*DisplayNode]

	dispatchMu sync.Mutex

	// Host context
	workMu    sync.Mutex
	workCond  *sync.Cond
	work      []func()
	closed    bool
	loopDone  chan struct{}
	closeOnce sync.Once
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithConfig applies cfg. The mode argument of CreateCompositor still wins
// over cfg.Mode.
func WithConfig(cfg Config) Option {
	return func(c *Compositor) { c.cfg = cfg }
}

// WithLogger sets the logger; the default is the package logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Compositor) { c.log = l }
}

// WithMetrics registers the compositor's collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Compositor) { c.reg = reg }
}

// WithFonts sets the registry used by NewGlyphTexture.
func WithFonts(r *FontRegistry) Option {
	return func(c *Compositor) { c.fonts = r }
}

// CreateCompositor starts a compositor projecting onto host. In
// CompositionModeDefault, Tick dispatches queued transactions; in
// CompositionModeLibrary the caller dispatches explicitly.
func CreateCompositor(host Host, mode CompositionMode, opts ...Option) (*Compositor, error) {
	if host == nil {
		return nil, errors.New("compositor: nil host")
	}
	c := &Compositor{
		host:     host,
		cfg:      DefaultConfig(),
		log:      componentLogger("compositor"),
		roots:    make(map[*DisplayNode]Ref[*DisplayNode]),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.mode = mode
	c.cfg.Mode = mode
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	if c.reg == nil && c.cfg.Metrics {
		c.reg = prometheus.DefaultRegisterer
	}
	if c.reg != nil {
		m, err := NewMetrics(c.reg)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}
	if c.fonts == nil {
		c.fonts = DefaultFonts()
	}
	c.pending = NewTransactions(c.cfg.QueueCapacity)
	c.workCond = sync.NewCond(&c.workMu)

	go c.loop()
	c.log.Debug().Str("mode", mode.String()).Msg("compositor created")
	return c, nil
}

// Mode returns the composition mode.
func (c *Compositor) Mode() CompositionMode {
	return c.mode
}

// Host returns the host tree. Call its methods only inside RunOnHost.
func (c *Compositor) Host() Host {
	return c.host
}

// Fonts returns the registry used for glyph textures.
func (c *Compositor) Fonts() *FontRegistry {
	return c.fonts
}

// --- Factories ---

// NewNode creates a node of the given kind. The caller owns the returned
// reference.
func (c *Compositor) NewNode(kind NodeKind) Ref[*DisplayNode] {
	return NewRef(newDisplayNode(c, kind, false))
}

// NewRootNode creates a simple root node. Attach it to the host root with
// AddToRoot.
func (c *Compositor) NewRootNode() Ref[*DisplayNode] {
	return NewRef(newDisplayNode(c, NodeSimple, true))
}

// NewGlyphTexture creates a glyph texture using the compositor's fonts.
// The caller owns the returned reference.
func (c *Compositor) NewGlyphTexture() Ref[*GlyphTexture] {
	return NewRef(NewGlyphTexture(c.fonts))
}

// --- Queues ---

// EnqueueFunc queues free-form host work ahead of the next dispatch's
// structural phase.
func (c *Compositor) EnqueueFunc(fn TransactionFunc) {
	c.enqueueSub(fn)
}

// Pending returns the number of queued transactions.
func (c *Compositor) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.Len()
}

func (c *Compositor) enqueueSub(tx Transaction) {
	c.mu.Lock()
	c.pending.Sub = append(c.pending.Sub, tx)
	c.mu.Unlock()
}

func (c *Compositor) enqueueMovement(tx Transaction) {
	c.mu.Lock()
	c.pending.Movements = append(c.pending.Movements, tx)
	c.mu.Unlock()
}

func (c *Compositor) enqueueProperty(n *DisplayNode, name string, tx Transaction) {
	c.mu.Lock()
	c.pending.SetProperty(n, name, tx)
	c.mu.Unlock()
}

func (c *Compositor) enqueueAnimation(tx AnimationTransaction) {
	c.mu.Lock()
	c.pending.Animations = append(c.pending.Animations, tx)
	c.mu.Unlock()
}

// dropProperties discards pending property writes of a destroyed node.
func (c *Compositor) dropProperties(n *DisplayNode) {
	c.mu.Lock()
	delete(c.pending.Properties, n)
	c.mu.Unlock()
}

func (c *Compositor) keepRoot(n *DisplayNode) {
	c.rootsMu.Lock()
	if _, ok := c.roots[n]; !ok {
		c.roots[n] = NewRef(n)
	}
	c.rootsMu.Unlock()
}

func (c *Compositor) dropRoot(n *DisplayNode) {
	c.rootsMu.Lock()
	ref := c.roots[n]
	delete(c.roots, n)
	c.rootsMu.Unlock()
	ref.Reset()
}

// --- Dispatch ---

// Dispatch applies every queued transaction to the host and returns when
// the synchronous phases are done. Animation acceptance is reported by the
// returned Batch. Concurrent calls are serialized.
func (c *Compositor) Dispatch() (*Batch, error) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	txs := c.pending
	c.pending = NewTransactions(c.cfg.QueueCapacity)
	c.mu.Unlock()

	if txs.Len() == 0 {
		return &Batch{}, nil
	}

	var b *Batch
	if err := c.RunOnHost(func() { b = DispatchCompositorTransactions(c.host, txs) }); err != nil {
		return nil, err
	}

	c.metrics.observeDispatch(b.stats)
	if c.cfg.Debug {
		debugLog(c.log, b.stats)
	}
	for _, err := range b.Rejected {
		c.log.Warn().Err(err).Msg("host rejected change")
	}
	return b, nil
}

// Tick advances one frame of dt seconds. In CompositionModeDefault queued
// transactions are dispatched first; then the host's own timeline advances
// if it implements Ticker.
func (c *Compositor) Tick(dt float64) error {
	if c.mode == CompositionModeDefault {
		if _, err := c.Dispatch(); err != nil {
			return err
		}
	}
	ticker, ok := c.host.(Ticker)
	if !ok {
		return nil
	}
	return c.RunOnHost(func() { ticker.Tick(dt) })
}

// --- Host context ---

// RunOnHost runs fn on the host context and waits for it. It must not be
// called from the host context itself, which includes OnCompleted hooks.
func (c *Compositor) RunOnHost(fn func()) error {
	done := make(chan struct{})
	if !c.post(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}
	<-done
	return nil
}

// post queues fn on the host context without waiting. Reports false after
// Close.
func (c *Compositor) post(fn func()) bool {
	c.workMu.Lock()
	defer c.workMu.Unlock()
	if c.closed {
		return false
	}
	c.work = append(c.work, fn)
	c.workCond.Signal()
	return true
}

func (c *Compositor) loop() {
	defer close(c.loopDone)
	for {
		c.workMu.Lock()
		for len(c.work) == 0 && !c.closed {
			c.workCond.Wait()
		}
		if len(c.work) == 0 {
			c.workMu.Unlock()
			return
		}
		jobs := c.work
		c.work = nil
		c.workMu.Unlock()

		for _, fn := range jobs {
			fn()
		}
	}
}

// Close releases the compositor's root nodes, applies the resulting
// teardown, and stops the host context. Work already posted still runs.
func (c *Compositor) Close() error {
	var err error
	c.closeOnce.Do(func() {
		start := time.Now()

		c.rootsMu.Lock()
		roots := c.roots
		c.roots = make(map[*DisplayNode]Ref[*DisplayNode])
		c.rootsMu.Unlock()
		for n, ref := range roots {
			c.treeMu.Lock()
			n.onRoot = false
			c.treeMu.Unlock()
			ref.Reset()
		}
		_, err = c.Dispatch()

		c.workMu.Lock()
		c.closed = true
		c.workCond.Broadcast()
		c.workMu.Unlock()
		<-c.loopDone

		logDuration(c.log, start, "close")
	})
	return err
}
