package http

import (
	"net/http"
	"time"

	"spendwatch/internal/core"
	applog "spendwatch/internal/log"
	"spendwatch/internal/services"
)

type periodView struct {
	Key   string    `json:"key"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func newPeriodView(p core.Period) periodView {
	return periodView{Key: p.Key(), Start: p.Start, End: p.End}
}

type summaryView struct {
	Period    periodView `json:"period"`
	Total     core.Money `json:"total"`
	Limit     core.Money `json:"limit"`
	Remaining core.Money `json:"remaining"`
	Exceeded  bool       `json:"exceeded"`
}

type reportView struct {
	Period          periodView `json:"period"`
	Total           core.Money `json:"total"`
	Limit           core.Money `json:"limit"`
	Exceeded        bool       `json:"exceeded"`
	Notified        bool       `json:"notified"`
	AlreadyNotified bool       `json:"alreadyNotified"`
	NotifyError     string     `json:"notifyError,omitempty"`
}

func newReportView(rep services.Report) reportView {
	v := reportView{
		Period:          newPeriodView(rep.Period),
		Total:           rep.Total,
		Limit:           rep.Limit,
		Exceeded:        rep.Exceeded,
		Notified:        rep.Notified,
		AlreadyNotified: rep.AlreadyNotified,
	}
	if rep.NotifyErr != nil {
		v.NotifyError = rep.NotifyErr.Error()
	}
	return v
}

// handleMonthSummary reports the current month against the limit without
// notifying anyone.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.watchdog.Summary(r.Context())
	if err != nil {
		s.writeError(w, r, err, MsgInternalServerError, applog.ComponentWatchdog, applog.OpRead)
		return
	}
	NewJSONResponse().Set("summary", summaryView{
		Period:    newPeriodView(sum.Period),
		Total:     sum.Total,
		Limit:     sum.Limit,
		Remaining: sum.Remaining,
		Exceeded:  sum.Exceeded,
	}).Write(w)
}

// handleWatchdogCheck runs the threshold check now. A failed notification
// still answers 200 with the error in the report.
func (s *Server) handleWatchdogCheck(w http.ResponseWriter, r *http.Request) {
	rep, err := s.watchdog.Check(r.Context())
	if err != nil {
		s.writeError(w, r, err, MsgInternalServerError, applog.ComponentWatchdog, applog.OpCheck)
		return
	}
	s.slogger.LogWatchdogCheck(r.Context(), rep.Period, rep.Total, rep.Limit, rep.Exceeded, rep.Notified)
	NewJSONResponse().Set("report", newReportView(rep)).Write(w)
}
