package logsvc

import (
	"fmt"
	"io"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/notas/core"
	"github.com/trezcool/notas/core/grading"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

// NewDiscardLogger returns a RollbarLogger that reports nowhere. Used by tests & tools.
func NewDiscardLogger() *RollbarLogger {
	rollbar.SetEnabled(false)
	return &RollbarLogger{std: log.New(io.Discard, "", 0)}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare turns args into rollbar's expected fmt: msg, error, map[string]interface{}.
// The first error is reported as such, a grading.Student sets the person, and any other value
// is attached as an extra.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var err error
	var personSet bool
	extras := make(map[string]interface{})
	for i, arg := range args {
		switch a := arg.(type) {
		case grading.Student:
			if !personSet { // only set one Student
				rollbar.SetPerson(a.Carnet, a.Name, a.Email)
				personSet = true
			}
		case error:
			if err == nil {
				err = a
			} else {
				extras[fmt.Sprintf("arg%d", i)] = a.Error()
			}
		case map[string]interface{}:
			for k, v := range a {
				extras[k] = v
			}
		default:
			extras[fmt.Sprintf("arg%d", i)] = a
		}
	}
	if !personSet {
		rollbar.ClearPerson()
	}

	newArgs := make([]interface{}, 0, 3)
	newArgs = append(newArgs, msg)
	if err != nil {
		newArgs = append(newArgs, err)
	}
	if len(extras) > 0 {
		newArgs = append(newArgs, extras)
	}
	return newArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print(msg, args)
	l.std.Fatal(msg)
}
