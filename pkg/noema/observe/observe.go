package observe

import "github.com/sirupsen/logrus"

// Observer is notified at the engine's decision points. Implementations must
// not mutate engine state; the core stays free of I/O by funnelling all
// diagnostics through this interface.
type Observer interface {
	FormulaComputed(formula string, holds bool)
	FormulaGenerated(formula string, count int)
	RuleAttempted(formula string)
	SweepRestarted(round int)
	TargetAchieved(target string)
}

// Nop is an Observer that discards every notification.
type Nop struct{}

func (Nop) FormulaComputed(string, bool) {}
func (Nop) FormulaGenerated(string, int) {}
func (Nop) RuleAttempted(string)         {}
func (Nop) SweepRestarted(int)           {}
func (Nop) TargetAchieved(string)        {}

// Logger adapts a logrus logger to the Observer interface.
type Logger struct {
	log logrus.FieldLogger
}

// NewLogger creates a logging observer.
func NewLogger(log logrus.FieldLogger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) FormulaComputed(formula string, holds bool) {
	l.log.WithFields(logrus.Fields{"formula": formula, "holds": holds}).Debug("formula computed")
}

func (l *Logger) FormulaGenerated(formula string, count int) {
	l.log.WithFields(logrus.Fields{"formula": formula, "count": count}).Debug("formula generated")
}

func (l *Logger) RuleAttempted(formula string) {
	l.log.WithField("formula", formula).Debug("trying to generate by formula")
}

func (l *Logger) SweepRestarted(round int) {
	l.log.WithField("round", round).Debug("sweep restarted from highest priority")
}

func (l *Logger) TargetAchieved(target string) {
	l.log.WithField("target", target).Debug("target achieved")
}
