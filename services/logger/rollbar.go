package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/approval"
)

// RollbarLogger reports to Rollbar and prints through the wrapped logger.
type RollbarLogger struct {
	next core.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(next core.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "")
	return &RollbarLogger{next: next}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

func (l RollbarLogger) Close() {
	rollbar.Close()
}

// expected fmt: msg | error, map[string]interface{}, approval.Actor, key/value pairs
func (l RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, []interface{}) {
	var actorSet bool
	extras := map[string]interface{}{}
	report := []interface{}{msg}
	printed := make([]interface{}, 0, len(args))

	for i := 0; i < len(args); i++ {
		switch arg := args[i].(type) {
		case approval.Actor:
			if !actorSet { // only set one person
				rollbar.SetPerson(arg.Key, arg.Name, "")
				actorSet = true
			}
			printed = append(printed, "actor", arg.Key)
		case error:
			report = append(report, arg)
			printed = append(printed, arg)
		case map[string]interface{}:
			for k, v := range arg {
				extras[k] = v
			}
			printed = append(printed, arg)
		case string:
			if i+1 < len(args) {
				extras[arg] = args[i+1]
				printed = append(printed, arg, args[i+1])
				i++
			} else {
				printed = append(printed, arg)
			}
		default:
			extras[fmt.Sprintf("arg%d", i)] = arg
			printed = append(printed, arg)
		}
	}
	if !actorSet {
		rollbar.ClearPerson()
	}
	if len(extras) > 0 {
		report = append(report, extras)
	}
	return report, printed
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	report, printed := l.prepare(msg, args)
	rollbar.Debug(report...)
	l.next.Debug(msg, printed...)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	report, printed := l.prepare(msg, args)
	rollbar.Info(report...)
	l.next.Info(msg, printed...)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	report, printed := l.prepare(msg, args)
	rollbar.Warning(report...)
	l.next.Warn(msg, printed...)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	report, printed := l.prepare(msg, args)
	rollbar.Error(report...)
	l.next.Error(msg, printed...)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	report, printed := l.prepare(msg, args)
	rollbar.Critical(report...)
	rollbar.Close()
	l.next.Fatal(msg, printed...)
}
