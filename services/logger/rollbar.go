package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/gradebook/core"
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

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, core.LogFields
// LogFields are merged into rollbar's custom extras; the tenant becomes the rollbar "person".
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var (
		extras    map[string]interface{}
		schoolSet bool
	)
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		fields, ok := arg.(core.LogFields)
		if !ok {
			newArgs = append(newArgs, arg)
			continue
		}
		if extras == nil {
			extras = make(map[string]interface{}, len(fields))
		}
		for k, v := range fields {
			extras[k] = v
		}
		if schoolID, ok := fields["school_id"].(string); ok && !schoolSet {
			rollbar.SetPerson(schoolID, "", "")
			schoolSet = true
		}
	}
	if extras != nil {
		newArgs = append(newArgs, extras)
	}
	if !schoolSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Println(formatLine(level, msg, args))
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print("DEBUG", msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print("INFO", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print("WARN", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print("ERROR", msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print("FATAL", msg, args)
	l.std.Fatal(msg)
}

// formatLine renders "LEVEL msg key=value ... extra" with fields sorted by key.
func formatLine(level, msg string, args []interface{}) string {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case core.LogFields:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%v", k, v[k])
			}
		case error:
			fmt.Fprintf(&b, " error=%q", v.Error())
		default:
			fmt.Fprintf(&b, " %+v", v)
		}
	}
	return b.String()
}
