package errors

import "sync"

// RecoveryAction is the action the recovery controller recommends for an
// error kind at a given severity.
type RecoveryAction int

const (
	// ActionRetry retries the failed operation unchanged.
	ActionRetry RecoveryAction = iota
	// ActionFallback switches to an alternate implementation.
	ActionFallback
	// ActionDegrade reduces functionality gracefully.
	ActionDegrade
	// ActionReset resets the owning component's state.
	ActionReset
	// ActionRestart restarts the owning subsystem.
	ActionRestart
	// ActionNone means the error propagates with no recovery attempt.
	ActionNone
)

// String returns a human-readable action name.
func (a RecoveryAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionDegrade:
		return "degrade"
	case ActionReset:
		return "reset"
	case ActionRestart:
		return "restart"
	case ActionNone:
		return "none"
	default:
		return "unknown"
	}
}

// RecoveryResult is the outcome of executing a RecoveryAction.
type RecoveryResult int

const (
	RecoverySuccess RecoveryResult = iota
	RecoveryFailed
	RecoveryNotApplicable
	RecoveryTimeout
)

// String returns a human-readable result name.
func (r RecoveryResult) String() string {
	switch r {
	case RecoverySuccess:
		return "success"
	case RecoveryFailed:
		return "failed"
	case RecoveryNotApplicable:
		return "not applicable"
	case RecoveryTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// RecoveryStrategyConfig configures the recovery controller.
type RecoveryStrategyConfig struct {
	// MaxAttempts is the maximum recovery attempts per error kind before
	// the controller stops recommending recovery for it.
	MaxAttempts int
	// AutoRecover gates whether DetermineAction ever returns an
	// action at all.
	AutoRecover bool
	// LogRecovery requests the caller log each attempt (observed by the
	// caller, not by this package, which carries no logger dependency).
	LogRecovery bool
	// ErrorTypeActions overrides the default action for specific kinds.
	ErrorTypeActions map[ErrorKind]RecoveryAction
}

// DefaultRecoveryStrategyConfig returns the baseline configuration.
func DefaultRecoveryStrategyConfig() RecoveryStrategyConfig {
	return RecoveryStrategyConfig{
		MaxAttempts:      3,
		AutoRecover:      true,
		LogRecovery:      true,
		ErrorTypeActions: make(map[ErrorKind]RecoveryAction),
	}
}

// RecoveryStats tallies recovery attempts and outcomes.
type RecoveryStats struct {
	TotalAttempts        int
	SuccessfulRecoveries int
	FailedRecoveries     int
	AttemptsByKind       map[ErrorKind]int
	SuccessesByKind      map[ErrorKind]int
}

func newRecoveryStats() RecoveryStats {
	return RecoveryStats{
		AttemptsByKind:  make(map[ErrorKind]int),
		SuccessesByKind: make(map[ErrorKind]int),
	}
}

// ErrorStats summarizes error occurrence counts used to drive adaptive
// recovery tuning.
type ErrorStats struct {
	TotalErrors    int
	CriticalErrors int
}

// RecoveryController determines and tracks recovery actions for kernel
// errors. A single mutex guards all mutable state, matching the coarse
// locking style used elsewhere in this codebase for small, low-contention
// critical sections.
type RecoveryController struct {
	mu              sync.Mutex
	config          RecoveryStrategyConfig
	stats           RecoveryStats
	errorCounts     map[ErrorKind]int
	recoveryAttempt map[ErrorKind]int
	enabled         bool
}

// NewRecoveryController creates a controller with the default strategy.
func NewRecoveryController() *RecoveryController {
	return &RecoveryController{
		config:          DefaultRecoveryStrategyConfig(),
		stats:           newRecoveryStats(),
		errorCounts:     make(map[ErrorKind]int),
		recoveryAttempt: make(map[ErrorKind]int),
		enabled:         true,
	}
}

// UpdateConfig replaces the recovery strategy configuration.
func (c *RecoveryController) UpdateConfig(cfg RecoveryStrategyConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = cfg
}

// Config returns a copy of the current configuration.
func (c *RecoveryController) Config() RecoveryStrategyConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// SetEnabled enables or disables recovery determination entirely.
func (c *RecoveryController) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// Enabled reports whether recovery is active.
func (c *RecoveryController) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// DetermineAction decides the recovery action, if any, for an error of the
// given kind and severity. Returns (action, true) when recovery should be
// attempted, (ActionNone, false) when it should not — either because
// recovery is disabled, the per-kind attempt budget is exhausted, or the
// severity forecloses it (Info/Warning need none, Fatal allows none).
func (c *RecoveryController) DetermineAction(kind ErrorKind, severity Severity) (RecoveryAction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled || !c.config.AutoRecover {
		return ActionNone, false
	}

	if c.recoveryAttempt[kind] >= c.config.MaxAttempts {
		return ActionNone, false
	}

	var action RecoveryAction
	var ok bool
	switch severity {
	case SeverityInfo, SeverityWarning:
		return ActionNone, false
	case SeverityError:
		action, ok = c.actionForKindLocked(kind)
	case SeverityCritical:
		action, ok = ActionReset, true
	case SeverityFatal:
		return ActionNone, false
	default:
		return ActionNone, false
	}

	if !ok {
		return ActionNone, false
	}

	c.recoveryAttempt[kind]++
	c.stats.TotalAttempts++
	c.stats.AttemptsByKind[kind]++

	return action, true
}

// actionForKindLocked returns the configured or default action for a kind.
// Callers must hold c.mu.
func (c *RecoveryController) actionForKindLocked(kind ErrorKind) (RecoveryAction, bool) {
	if action, ok := c.config.ErrorTypeActions[kind]; ok {
		return action, true
	}

	switch kind {
	case ErrKindOutOfMemory, ErrKindMemory:
		return ActionDegrade, true
	case ErrKindFileSystem, ErrKindNetwork:
		return ActionRetry, true
	case ErrKindProcess, ErrKindDriver:
		return ActionReset, true
	case ErrKindSecurity:
		return ActionNone, false
	default:
		return ActionRetry, true
	}
}

// RecordSuccess records a successful recovery and resets the per-kind
// attempt counter, allowing future errors of this kind a fresh budget.
func (c *RecoveryController) RecordSuccess(kind ErrorKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.SuccessfulRecoveries++
	c.stats.SuccessesByKind[kind]++
	delete(c.recoveryAttempt, kind)
}

// RecordFailure records a failed recovery attempt.
func (c *RecoveryController) RecordFailure(kind ErrorKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.FailedRecoveries++
}

// RecordError records an error occurrence for adaptive tuning, independent
// of whether recovery was attempted.
func (c *RecoveryController) RecordError(kind ErrorKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCounts[kind]++
}

// Stats returns a copy of the current recovery statistics.
func (c *RecoveryController) Stats() RecoveryStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := newRecoveryStats()
	out.TotalAttempts = c.stats.TotalAttempts
	out.SuccessfulRecoveries = c.stats.SuccessfulRecoveries
	out.FailedRecoveries = c.stats.FailedRecoveries
	for k, v := range c.stats.AttemptsByKind {
		out.AttemptsByKind[k] = v
	}
	for k, v := range c.stats.SuccessesByKind {
		out.SuccessesByKind[k] = v
	}
	return out
}

// ErrorCounts returns a copy of the raw per-kind error occurrence counts.
func (c *RecoveryController) ErrorCounts() map[ErrorKind]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[ErrorKind]int, len(c.errorCounts))
	for k, v := range c.errorCounts {
		out[k] = v
	}
	return out
}

// ResetStats clears all recovery and error statistics.
func (c *RecoveryController) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = newRecoveryStats()
	c.recoveryAttempt = make(map[ErrorKind]int)
	c.errorCounts = make(map[ErrorKind]int)
}

// ConfigureAdaptive tightens MaxAttempts under sustained error load:
// disables auto-recovery entirely above 10 critical errors, drops the
// budget to 2 above 100 total errors, otherwise restores the default of 3.
func (c *RecoveryController) ConfigureAdaptive(stats ErrorStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case stats.CriticalErrors > 10:
		c.config.MaxAttempts = 1
		c.config.AutoRecover = false
	case stats.TotalErrors > 100:
		c.config.MaxAttempts = 2
	default:
		c.config.MaxAttempts = 3
	}
}
