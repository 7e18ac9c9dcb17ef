package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/legalscope/internal/contractanalysis"
	"github.com/joelkehle/legalscope/internal/store"
)

// MaxUploadBytes bounds the request body for analyze calls. Oversized
// documents are rejected before the pipeline sees them.
const MaxUploadBytes = 1 << 20

// Analyzer runs a full contract analysis. Satisfied by
// *contractanalysis.Pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, filename, rawText string, opts contractanalysis.Options) (contractanalysis.AnalysisResult, error)
}

// PDFRenderer prints a markdown report to PDF. Satisfied by
// *render.ChromiumPDFRenderer. May be nil when PDF output is disabled.
type PDFRenderer interface {
	Render(ctx context.Context, title, markdown string) ([]byte, error)
}

// HTMLRenderer converts a markdown report to a standalone HTML page.
type HTMLRenderer func(title, markdown string) (string, error)

type Server struct {
	analyzer Analyzer
	store    *store.Store
	pdf      PDFRenderer
	html     HTMLRenderer
	tracer   trace.Tracer
}

func NewServer(analyzer Analyzer, st *store.Store, pdf PDFRenderer, html HTMLRenderer) http.Handler {
	s := &Server{
		analyzer: analyzer,
		store:    st,
		pdf:      pdf,
		html:     html,
		tracer:   otel.Tracer("legalscope/httpapi"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("/v1/analyses", s.handleListAnalyses)
	mux.HandleFunc("/v1/analyses/", s.handleAnalysisByID)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"ok":    false,
		"error": map[string]any{"message": message},
	})
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func parseInt(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return v
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	var req struct {
		Filename  string `json:"filename"`
		Text      string `json:"text"`
		EnableLLM bool   `json:"enable_llm"`
	}
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Filename == "" {
		req.Filename = "untitled"
	}

	ctx, span := s.tracer.Start(r.Context(), "analyze")
	span.SetAttributes(
		attribute.String("document.filename", req.Filename),
		attribute.Int("document.bytes", len(req.Text)),
		attribute.Bool("llm.enabled", req.EnableLLM),
	)
	defer span.End()

	result, err := s.analyzer.Analyze(ctx, req.Filename, req.Text, contractanalysis.Options{EnableLLM: req.EnableLLM})
	if err != nil {
		span.RecordError(err)
		log.Printf("analyze failed at stage %s: %v", contractanalysis.StageNameFromError(err), err)
		writeError(w, http.StatusBadGateway, "analysis failed: "+err.Error())
		return
	}

	id := uuid.NewString()
	if err := s.store.Save(ctx, id, result); err != nil {
		span.RecordError(err)
		log.Printf("save analysis %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to persist analysis")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"id":     id,
		"result": result,
	})
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	records, err := s.store.List(r.Context(), limit)
	if err != nil {
		log.Printf("list analyses: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": records})
}

func (s *Server) handleAnalysisByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/analyses/")
	id, suffix, _ := strings.Cut(rest, "/")
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if r.Method == http.MethodDelete && suffix == "" {
		if err := s.store.Delete(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "analysis not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to delete analysis")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	result, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		log.Printf("get analysis %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}

	switch suffix {
	case "":
		writeJSON(w, http.StatusOK, result)
	case "report":
		s.serveReportHTML(w, result)
	case "report.pdf":
		s.serveReportPDF(r.Context(), w, result)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) serveReportHTML(w http.ResponseWriter, result contractanalysis.AnalysisResult) {
	markdown := contractanalysis.BuildReportMarkdown(result)
	page, err := s.html("Contract Analysis: "+result.Filename, markdown)
	if err != nil {
		log.Printf("render report html: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, page)
}

func (s *Server) serveReportPDF(ctx context.Context, w http.ResponseWriter, result contractanalysis.AnalysisResult) {
	if s.pdf == nil {
		writeError(w, http.StatusNotImplemented, "PDF rendering is not configured")
		return
	}
	markdown := contractanalysis.BuildReportMarkdown(result)
	pdf, err := s.pdf.Render(ctx, "Contract Analysis: "+result.Filename, markdown)
	if err != nil {
		log.Printf("render report pdf: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to render PDF")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "legalscope"})
}
