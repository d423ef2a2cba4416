package plot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/raykavin/chartdesk/pkg/chart"
	"github.com/raykavin/chartdesk/pkg/feed"
	"github.com/raykavin/chartdesk/pkg/indicator"
)

var ErrUnknownPointer = errors.New("unknown pointer event")

func dispatchPointer(v *chart.View, kind string, p chart.Point) error {
	switch kind {
	case "down":
		v.PointerDown(p)
	case "move":
		v.PointerMove(p)
	case "up":
		v.PointerUp(p)
	case "leave":
		v.PointerLeave()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPointer, kind)
	}
	return nil
}

type sessionIDInput struct {
	ID string `path:"id" doc:"Session ID"`
}

type sessionOutput struct {
	Body Snapshot
}

type stateOutput struct {
	Body struct {
		Version int64 `json:"version"`
		State   State `json:"state"`
	}
}

func registerSessionHandlers(api huma.API, s *Server) {
	type createSessionInput struct {
		Body struct {
			Symbol   string   `json:"symbol" minLength:"1" doc:"Ticker symbol"`
			Period   string   `json:"period,omitempty" doc:"Look-back period, 1mo when empty"`
			Interval string   `json:"interval,omitempty" doc:"Candle interval, 1d when empty"`
			Compare  []string `json:"compareSymbols,omitempty"`
			Width    float64  `json:"width,omitempty" doc:"Canvas width in pixels"`
			Height   float64  `json:"height,omitempty" doc:"Canvas height in pixels"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "create-session", Method: http.MethodPost, Path: "/api/v1/sessions", Summary: "Load a series and mount a chart view", Tags: []string{"Sessions"}, DefaultStatus: http.StatusCreated},
		func(ctx context.Context, input *createSessionInput) (*sessionOutput, error) {
			q := feed.Query{
				Symbol:   input.Body.Symbol,
				Period:   input.Body.Period,
				Interval: input.Body.Interval,
				Compare:  input.Body.Compare,
			}
			if q.Period == "" {
				q.Period = "1mo"
			}
			if q.Interval == "" {
				q.Interval = "1d"
			}

			session, err := s.sessions.Create(ctx, q, input.Body.Width, input.Body.Height)
			if err != nil {
				return nil, mapErr(err)
			}
			return &sessionOutput{Body: session.Snapshot()}, nil
		})

	type sessionListOutput struct {
		Body struct {
			Sessions []Snapshot `json:"sessions"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-sessions", Method: http.MethodGet, Path: "/api/v1/sessions", Summary: "List mounted sessions", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *struct{}) (*sessionListOutput, error) {
			out := &sessionListOutput{}
			out.Body.Sessions = []Snapshot{}
			for _, session := range s.sessions.List() {
				out.Body.Sessions = append(out.Body.Sessions, session.Snapshot())
			}
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-session", Method: http.MethodGet, Path: "/api/v1/sessions/{id}", Summary: "Describe a session", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *sessionIDInput) (*sessionOutput, error) {
			session, err := s.sessions.Get(input.ID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &sessionOutput{Body: session.Snapshot()}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "delete-session", Method: http.MethodDelete, Path: "/api/v1/sessions/{id}", Summary: "Tear a session down", Tags: []string{"Sessions"}, DefaultStatus: http.StatusNoContent},
		func(ctx context.Context, input *sessionIDInput) (*struct{}, error) {
			if err := s.sessions.Delete(input.ID); err != nil {
				return nil, mapErr(err)
			}
			return nil, nil
		})

	huma.Register(api, huma.Operation{OperationID: "session-summary", Method: http.MethodGet, Path: "/api/v1/sessions/{id}/summary", Summary: "Indicator summary of the session candles", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *sessionIDInput) (*struct{ Body indicator.Figures }, error) {
			session, err := s.sessions.Get(input.ID)
			if err != nil {
				return nil, mapErr(err)
			}

			var summary indicator.Summary
			_, _, _ = session.Do(func(v *chart.View) error {
				summary = indicator.Summarize(v.Candles())
				return nil
			})
			return &struct{ Body indicator.Figures }{Body: summary.Figures()}, nil
		})
}

func registerDrawingHandlers(api huma.API, s *Server) {
	type toolInput struct {
		ID   string `path:"id"`
		Body struct {
			Tool string `json:"tool" enum:"none,trend,horizontal,flag" doc:"Tool to toggle"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "arm-tool", Method: http.MethodPost, Path: "/api/v1/sessions/{id}/tool", Summary: "Toggle the armed drawing tool", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *toolInput) (*stateOutput, error) {
			tool, err := chart.ParseTool(input.Body.Tool)
			if err != nil {
				return nil, mapErr(err)
			}
			return s.mutate(input.ID, func(v *chart.View) error {
				v.ArmTool(tool)
				return nil
			})
		})

	type pointerInput struct {
		ID   string `path:"id"`
		Body struct {
			Kind string  `json:"kind" enum:"down,move,up,leave"`
			X    float64 `json:"x,omitempty"`
			Y    float64 `json:"y,omitempty"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "pointer-event", Method: http.MethodPost, Path: "/api/v1/sessions/{id}/pointer", Summary: "Feed a pointer event to the drawing session", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *pointerInput) (*stateOutput, error) {
			p := chart.Point{X: input.Body.X, Y: input.Body.Y}
			return s.mutate(input.ID, func(v *chart.View) error {
				return dispatchPointer(v, input.Body.Kind, p)
			})
		})

	type flagTextInput struct {
		ID   string `path:"id"`
		Body struct {
			Text   string `json:"text,omitempty"`
			Cancel bool   `json:"cancel,omitempty"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "flag-text", Method: http.MethodPost, Path: "/api/v1/sessions/{id}/flag-text", Summary: "Answer the note of the pending flag", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *flagTextInput) (*stateOutput, error) {
			return s.mutate(input.ID, func(v *chart.View) error {
				if input.Body.Cancel {
					v.CancelFlagText()
				} else {
					v.SubmitFlagText(input.Body.Text)
				}
				return nil
			})
		})

	type resizeInput struct {
		ID   string `path:"id"`
		Body struct {
			Width  float64 `json:"width" minimum:"1"`
			Height float64 `json:"height" minimum:"1"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "resize", Method: http.MethodPost, Path: "/api/v1/sessions/{id}/resize", Summary: "Resize the canvas", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *resizeInput) (*stateOutput, error) {
			width, height := canvasSize(input.Body.Width, input.Body.Height)
			return s.mutate(input.ID, func(v *chart.View) error {
				v.Resize(width, height)
				return nil
			})
		})

	huma.Register(api, huma.Operation{OperationID: "clear-annotations", Method: http.MethodPost, Path: "/api/v1/sessions/{id}/clear", Summary: "Remove every annotation and reset the session", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *sessionIDInput) (*stateOutput, error) {
			return s.mutate(input.ID, func(v *chart.View) error {
				v.ClearAll()
				return nil
			})
		})

	type annotationListOutput struct {
		Body struct {
			Annotations []any `json:"annotations"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-annotations", Method: http.MethodGet, Path: "/api/v1/sessions/{id}/annotations", Summary: "List stored annotations in drawing order", Tags: []string{"Drawings"}},
		func(ctx context.Context, input *sessionIDInput) (*annotationListOutput, error) {
			session, err := s.sessions.Get(input.ID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &annotationListOutput{}
			out.Body.Annotations = session.Snapshot().Annotations
			return out, nil
		})

	type annotationIDInput struct {
		ID           string `path:"id"`
		AnnotationID string `path:"annotation_id"`
	}
	huma.Register(api, huma.Operation{OperationID: "delete-annotation", Method: http.MethodDelete, Path: "/api/v1/sessions/{id}/annotations/{annotation_id}", Summary: "Delete one annotation", Tags: []string{"Drawings"}, DefaultStatus: http.StatusNoContent},
		func(ctx context.Context, input *annotationIDInput) (*struct{}, error) {
			annotationID, err := strconv.ParseInt(input.AnnotationID, 10, 64)
			if err != nil {
				return nil, huma.Error400BadRequest("annotation id must be an integer")
			}

			_, err = s.mutate(input.ID, func(v *chart.View) error {
				if !v.RemoveAnnotation(annotationID) {
					return fmt.Errorf("%w: %d", errAnnotationNotFound, annotationID)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			return nil, nil
		})
}

var errAnnotationNotFound = errors.New("annotation not found")

// mutate applies fn to the session, publishes the resulting frame event and
// answers with the new state.
func (s *Server) mutate(id string, fn func(v *chart.View) error) (*stateOutput, error) {
	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, mapErr(err)
	}

	event, changed, err := session.Do(fn)
	if err != nil {
		return nil, mapErr(err)
	}
	if changed {
		s.hub.Publish(event)
	}

	out := &stateOutput{}
	snap := session.Snapshot()
	out.Body.Version = snap.Version
	out.Body.State = snap.State
	return out, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}

	var serviceErr *feed.ServiceError
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, errAnnotationNotFound), errors.Is(err, feed.ErrNoData):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, feed.ErrInvalidSymbol), errors.Is(err, feed.ErrInvalidPeriod),
		errors.Is(err, feed.ErrInvalidInterval), errors.Is(err, chart.ErrUnknownTool),
		errors.Is(err, ErrUnknownPointer):
		return huma.Error400BadRequest(err.Error())
	case errors.As(err, &serviceErr):
		return huma.Error502BadGateway(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
