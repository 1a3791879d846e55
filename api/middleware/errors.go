package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/api/weberr"
	"github.com/sirupsen/logrus"
)

func Errors(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			fields := map[string]any{
				"req_id":  ContextRequestID(ctx),
				"message": err,
			}
			if f, ok := weberr.Fields(err); ok {
				for k, v := range f {
					fields[k] = v
				}
			}

			log.WithFields(logrus.Fields(fields)).Error("ERROR")

			if wantsHTML(r) {
				msg, code := weberr.Message(err)
				http.Error(w, msg, code)
				return nil
			}

			body, code, ok := weberr.Response(err)
			if !ok {
				code = http.StatusInternalServerError
				body = &weberr.ErrorResponse{Error: http.StatusText(code)}
			}

			return web.Respond(ctx, w, body, code)
		}
		return h
	}
	return m
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
