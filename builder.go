package cognitoemu

import (
	"errors"
	"io"

	internalaudit "github.com/localcognito/cognitoemu/internal/audit"
	internalmetrics "github.com/localcognito/cognitoemu/internal/metrics"
	"github.com/localcognito/cognitoemu/messages"
	"github.com/localcognito/cognitoemu/otp"
	"github.com/localcognito/cognitoemu/store"
	"github.com/localcognito/cognitoemu/tokens"
	"github.com/localcognito/cognitoemu/trigger"
)

// Builder assembles an Engine. The zero Builder is not usable; construct
// one with New.
type Builder struct {
	config Config

	backend store.Backend

	triggers  map[trigger.Hook]trigger.Handler
	otpGen    *otp.Generator
	auditSink internalaudit.Sink
	msgSink   messages.Sink

	built bool
}

// New returns a Builder seeded with default configuration.
func New() *Builder {
	return &Builder{
		config:   defaultConfig(),
		triggers: make(map[trigger.Hook]trigger.Handler),
	}
}

// WithConfig replaces the Builder's configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBackend sets the persistence backend every pool loads through. A
// Builder without a backend fails Build.
func (b *Builder) WithBackend(backend store.Backend) *Builder {
	b.backend = backend
	return b
}

// WithTrigger binds a lifecycle hook handler, consulted by every pool this
// Engine serves. Per-pool trigger isolation is not modeled: this emulator
// runs one process-wide handler set, matching its single-tenant operating
// model (see spec's no-distributed-operation non-goal).
func (b *Builder) WithTrigger(hook trigger.Hook, h trigger.Handler) *Builder {
	b.triggers[hook] = h
	return b
}

// WithAuditSink routes audit events to sink instead of the default no-op.
// Audit events are only produced when Config.Audit.Enabled is set, which
// the default Config leaves off.
func (b *Builder) WithAuditSink(sink internalaudit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithMessageSink routes recorded message deliveries (confirmation codes,
// MFA codes, invitations) to sink instead of discarding them.
func (b *Builder) WithMessageSink(sink messages.Sink) *Builder {
	b.msgSink = sink
	return b
}

// WithMessageLog is a convenience wrapper around WithMessageSink writing
// one JSON delivery record per line to w.
func (b *Builder) WithMessageLog(w io.Writer) *Builder {
	b.msgSink = messages.NewJSONWriterSink(w)
	return b
}

// WithOTPSource overrides the random source code generation draws from;
// used by tests to force the deterministic MFA stub.
func (b *Builder) WithOTPSource(source otp.Source) *Builder {
	b.otpGen = otp.New(source)
	return b
}

// WithMetricsEnabled toggles metrics collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles per-operation latency histograms; has no
// effect unless metrics are also enabled. Engine operations record no
// latency samples, so the histograms in MetricsSnapshot stay empty.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the accumulated configuration and constructs the Engine.
// A Builder can only be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("cognitoemu: builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.backend == nil {
		return nil, errors.New("cognitoemu: backend required")
	}

	tokenMgr, err := tokens.NewManager(tokens.Config{
		KeyID:  cfg.Token.KeyID,
		Issuer: cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	triggerRegistry := trigger.NewRegistry(cfg.Trigger.HookTimeout)
	for hook, h := range b.triggers {
		triggerRegistry.Bind(hook, h)
	}

	otpGen := b.otpGen
	if otpGen == nil {
		otpGen = otp.New(otp.CryptoSource)
	}

	engine := &Engine{
		config:   cfg,
		facade:   newFacade(b.backend),
		tokens:   tokenMgr,
		triggers: triggerRegistry,
		otp:      otpGen,
		messages: messages.NewService(b.msgSink),
		audit:    internalaudit.NewDispatcher(internalaudit.Config(cfg.Audit), b.auditSink),
		metrics:  internalmetrics.New(internalmetrics.Config(cfg.Metrics)),
		sessions: make(map[string]*pendingChallenge),
	}

	b.built = true
	return engine, nil
}
