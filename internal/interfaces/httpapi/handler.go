package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/logging"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

type Handler struct {
	boardService *usecase.BoardService
	scheduler    *usecase.PollScheduler
	hub          *Hub
	logger       *logging.Logger
	validator    *validator.Validate
}

func NewHandler(
	boardService *usecase.BoardService,
	scheduler *usecase.PollScheduler,
	hub *Hub,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		boardService: boardService,
		scheduler:    scheduler,
		hub:          hub,
		logger:       logger,
		validator:    validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

type liveEntryDTO struct {
	SubjectID      string         `json:"subjectId"`
	SubjectName    string         `json:"subjectName"`
	Sport          string         `json:"sport"`
	Team           string         `json:"team"`
	Opponent       string         `json:"opponent"`
	Home           bool           `json:"home"`
	Phase          string         `json:"phase"`
	KickoffAt      time.Time      `json:"kickoffAt"`
	ElapsedMinutes int            `json:"elapsedMinutes"`
	HomeScore      int            `json:"homeScore"`
	AwayScore      int            `json:"awayScore"`
	Stats          map[string]int `json:"stats"`
	LastEvent      string         `json:"lastEvent"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (h *Handler) ListLive(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLive")
	defer span.End()

	entries, err := h.boardService.LiveBoard(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list live board failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, liveEntriesToDTO(entries))
}

type upcomingFixtureDTO struct {
	FixtureID   string    `json:"fixtureId"`
	SubjectID   string    `json:"subjectId"`
	SubjectName string    `json:"subjectName"`
	Sport       string    `json:"sport"`
	Opponent    string    `json:"opponent"`
	Home        bool      `json:"home"`
	KickoffAt   time.Time `json:"kickoffAt"`
}

func (h *Handler) ListUpcomingFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListUpcomingFixtures")
	defer span.End()

	horizon := 7 * 24 * time.Hour
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 || days > 60 {
			writeError(ctx, w, fmt.Errorf("%w: days must be an integer between 1 and 60", usecase.ErrInvalidInput))
			return
		}
		horizon = time.Duration(days) * 24 * time.Hour
	}

	entries, err := h.boardService.UpcomingFixtures(ctx, horizon)
	if err != nil {
		h.logger.ErrorContext(ctx, "list upcoming fixtures failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]upcomingFixtureDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, upcomingFixtureDTO{
			FixtureID:   entry.Fixture.ID,
			SubjectID:   entry.Subject.ID,
			SubjectName: entry.Subject.Name,
			Sport:       entry.Subject.Sport,
			Opponent:    entry.Fixture.Opponent,
			Home:        entry.Fixture.Home,
			KickoffAt:   entry.Fixture.KickoffAt,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

type pollerStatusDTO struct {
	usecase.SchedulerStatus
	ConnectedViewers int `json:"connected_viewers"`
}

func (h *Handler) GetPollerStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPollerStatus")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, pollerStatusDTO{
		SchedulerStatus:  h.scheduler.Status(),
		ConnectedViewers: h.hub.ClientCount(),
	})
}

type updatePollerRequest struct {
	Enabled      *bool `json:"enabled"`
	Visible      *bool `json:"visible"`
	IntervalSecs *int  `json:"interval_secs" validate:"omitempty,gte=1,lte=600"`
}

func (h *Handler) UpdatePoller(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdatePoller")
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: read request body", usecase.ErrInvalidInput))
		return
	}

	var req updatePollerRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: decode request body", usecase.ErrInvalidInput))
		return
	}
	if err := h.validator.StructCtx(ctx, req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}
	if req.Enabled == nil && req.Visible == nil && req.IntervalSecs == nil {
		writeError(ctx, w, fmt.Errorf("%w: nothing to update", usecase.ErrInvalidInput))
		return
	}

	if req.IntervalSecs != nil {
		if err := h.scheduler.SetInterval(time.Duration(*req.IntervalSecs) * time.Second); err != nil {
			writeError(ctx, w, err)
			return
		}
	}
	if req.Enabled != nil {
		h.scheduler.SetEnabled(*req.Enabled)
	}
	// Operator override; the next viewer connect or disconnect on the hub
	// moves the gate again.
	if req.Visible != nil {
		h.scheduler.SetVisible(*req.Visible)
	}

	h.logger.InfoContext(ctx, "poller settings updated",
		"enabled", req.Enabled, "visible", req.Visible, "interval_secs", req.IntervalSecs)

	writeSuccess(ctx, w, http.StatusOK, pollerStatusDTO{
		SchedulerStatus:  h.scheduler.Status(),
		ConnectedViewers: h.hub.ClientCount(),
	})
}

// ServeWS hands the live-board stream to the hub. No envelope here: the
// connection switches protocols.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}

func (h *Handler) ForcePollTick(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ForcePollTick")
	defer span.End()

	summary, err := h.scheduler.Tick(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "forced poll tick failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"ran":          summary.Ran,
		"in_window":    summary.InWindow,
		"subjects":     summary.Subjects,
		"upserted":     summary.Upserted,
		"deleted":      summary.Deleted,
		"failed":       summary.Failed,
		"skipped":      summary.Skipped,
		"rate_limited": summary.RateLimited,
	})
}
