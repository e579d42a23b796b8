package logsvc

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
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

// prepare turns args into what rollbar.Log understands.
// Every core.Fields is merged into one custom data map. The first user.User is the person of this item only.
// expected fmt: msg | error, core.Fields, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var usr *user.User
	var custom map[string]interface{}
	newArgs := make([]interface{}, 0, len(args)+3)
	newArgs = append(newArgs, msg)

	merge := func(fields map[string]interface{}) {
		if custom == nil {
			custom = make(map[string]interface{}, len(fields))
		}
		for k, v := range fields {
			custom[k] = v
		}
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if usr == nil { // only set one User
				u := v
				usr = &u
			}
		case core.Fields:
			merge(v)
		case map[string]interface{}:
			merge(v)
		default:
			newArgs = append(newArgs, arg)
		}
	}

	if usr != nil {
		ctx := rollbar.NewPersonContext(context.Background(), &rollbar.Person{
			Id:       usr.ID,
			Username: usr.Username,
			Email:    usr.Email,
		})
		newArgs = append(newArgs, ctx)
		if usr.Role != "" {
			merge(map[string]interface{}{"user_role": usr.Role})
		}
	}
	if custom != nil {
		newArgs = append(newArgs, custom)
	}
	return newArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case core.Fields:
			l.std.Println(formatFields(v))
		case user.User:
			l.std.Printf("user: %s (%s)\n", v.Username, v.ID)
		default:
			l.std.Printf("%+v\n", arg)
		}
	}
}

// formatFields renders fields as sorted key=value pairs.
func formatFields(fields core.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(pairs, " ")
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
