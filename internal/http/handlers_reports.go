package http

import (
	"bytes"
	"net/http"
	"strconv"

	"glow/internal/export"
	"glow/internal/log"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	now, err := ParseReferenceTime(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError("date must be YYYY-MM-DD").Write(w)
		return
	}
	NewJSONResponse().JSON(s.presenter.Summary(r.Context(), now)).Write(w)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	now, err := ParseReferenceTime(query, s.now())
	if err != nil {
		BadRequestError("date must be YYYY-MM-DD").Write(w)
		return
	}
	months, err := ParseLimit(query, "months", s.chartMonths, maxChartMonths)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	NewJSONResponse().JSON(s.presenter.ChartSeries(r.Context(), now, months)).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	limit, err := ParseLimit(r.URL.Query(), "limit", 0, maxListLimit)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	NewJSONResponse().JSON(s.presenter.ExportSummary(r.Context(), s.now(), limit)).Write(w)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := ParseLimit(r.URL.Query(), "limit", 0, maxListLimit)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	doc := s.pdfPresenter.ExportSummary(ctx, s.now(), limit)
	var buf bytes.Buffer
	pages, err := export.RenderPDF(doc, &buf)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "PDF export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
		InternalServerError().Write(w)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "PDF export rendered", log.FieldOperation, log.OpExport, "pages", pages, "lines", len(doc.Lines))

	NewJSONResponse().
		Header("Content-Disposition", `attachment; filename="`+export.FileName+`"`).
		Header("Content-Length", strconv.Itoa(buf.Len())).
		Raw("application/pdf", buf.Bytes()).
		Write(w)
}
