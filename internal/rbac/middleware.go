package rbac

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/escuela/alumnos/internal/platform/httpx"
)

// Messages returned to denied callers.
const (
	MsgUserNotFound           = "Usuario no encontrado"
	MsgInsufficientPermission = "Acceso denegado: permiso insuficiente"
)

// ClaimField is the body field (or query parameter) carrying the caller id.
const ClaimField = "userId"

const maxClaimBody = 1 << 20

// DecisionRecorder observes access decisions, typically for metrics.
type DecisionRecorder interface {
	ObserveDecision(capability, outcome string)
}

// Middleware wires the access check in front of HTTP handlers.
type Middleware struct {
	Service  *Service
	Logger   *slog.Logger
	Recorder DecisionRecorder
}

// Require lets the request through only when the claimed caller holds
// capability. The caller identity is taken verbatim from the request and is
// not authenticated.
func (m Middleware) Require(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claimed, err := claimedUserID(r)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			decision, principal := m.Service.Check(r.Context(), capability, claimed)
			if m.Recorder != nil {
				m.Recorder.ObserveDecision(capability, decision.Outcome.String())
			}
			switch decision.Outcome {
			case OutcomeAllow:
				next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), *principal)))
			case OutcomeDeny:
				if decision.Reason == DenyUserNotFound {
					httpx.RespondError(w, httpx.NotFound(MsgUserNotFound))
					return
				}
				httpx.RespondError(w, httpx.Forbidden(MsgInsufficientPermission))
			default:
				if m.Logger != nil {
					m.Logger.Error("rbac require", slog.String("capability", capability), slog.Any("error", decision.Err))
				}
				httpx.Message(w, http.StatusInternalServerError, decision.Err.Error())
			}
		})
	}
}

// claimedUserID reads the userId field from a JSON body, falling back to the
// query string for clients that cannot send a body. The body is restored so
// the next handler can decode it again.
func claimedUserID(r *http.Request) (string, error) {
	if r.Body != nil && r.Body != http.NoBody {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxClaimBody))
		_ = r.Body.Close()
		if err != nil {
			return "", err
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if len(bytes.TrimSpace(raw)) > 0 {
			var claim map[string]json.RawMessage
			if err := json.Unmarshal(raw, &claim); err != nil {
				return "", httpx.Validation(err.Error())
			}
			if v, ok := claim[ClaimField]; ok && string(v) != "null" {
				var s string
				if err := json.Unmarshal(v, &s); err != nil {
					// Non-string ids never parse; let Resolve report them.
					return string(v), nil
				}
				return s, nil
			}
		}
	}
	return r.URL.Query().Get(ClaimField), nil
}
