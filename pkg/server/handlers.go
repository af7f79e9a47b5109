package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/assets"
	"github.com/vango-dev/ssrpages/pkg/middleware"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/pagecontext"
	"github.com/vango-dev/ssrpages/pkg/virtualmodule"
)

// Page exports the server looks for.
const (
	exportRender = "onRenderHtml"
	exportData   = "data"
)

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.EscapedPath(), VirtualPrefix)
	raw, err := url.PathUnescape(raw)
	if err != nil {
		s.writeError(w, r, errors.New("E201").WithDetailf("%q is not a valid path", r.URL.Path))
		return
	}
	if r.URL.RawQuery != "" {
		raw += "?" + r.URL.RawQuery
	}

	id, err := virtualmodule.Parse(raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	src, err := s.generator.GenerateID(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.config.Metrics.RecordModule(id.Side().String())

	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(src))
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if page, ok := pagecontext.PageURL(r.URL.Path); ok {
		s.handlePageContextJSON(w, r, withQuery(page, r.URL.RawQuery))
		return
	}

	pc, status, err := s.PageContext(r.Context(), r.URL.RequestURI())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	html, err := s.Render(r.Context(), pc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.config.BodyInject != "" && !s.config.Production {
		html = injectBeforeBodyEnd(html, s.config.BodyInject)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(html))
}

func (s *Server) handlePageContextJSON(w http.ResponseWriter, r *http.Request, pageURL string) {
	pc, status, err := s.PageContext(r.Context(), pageURL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := pagecontext.Serialize(pc, s.passToClient(pc))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (s *Server) passToClient(pc *pagecontext.PageContext) []string {
	return PassToClient(pc, s.config.PassToClient)
}

// PassToClient returns the passToClient list pc's page declares, or
// fallback when it declares none.
func PassToClient(pc *pagecontext.PageContext, fallback []string) []string {
	switch v := pc.Exports["passToClient"].(type) {
	case []string:
		return v
	case []any:
		keys := make([]string, 0, len(v))
		for _, k := range v {
			if ks, ok := k.(string); ok {
				keys = append(keys, ks)
			}
		}
		return keys
	}
	return fallback
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}

// PageContext resolves and assembles the server-side page context of
// urlOriginal. The status is 404 when no page matched, in which case the
// context belongs to the error page or, without one, to no page at all.
// It is 500 when the data hook failed and the error page renders the
// failure.
func (s *Server) PageContext(ctx context.Context, urlOriginal string) (*pagecontext.PageContext, int, error) {
	st, err := s.current()
	if err != nil {
		return nil, 0, err
	}

	ctx, span := middleware.StartSpan(ctx, "ssrpages.match", attribute.String("ssrpages.url", urlOriginal))
	match, err := st.matcher.Match(ctx, urlOriginal)
	middleware.EndSpan(span, err)
	if err != nil {
		return nil, 0, err
	}
	if match != nil {
		s.config.Metrics.RecordMatch(true, string(match.RouteType))
	} else {
		s.config.Metrics.RecordMatch(false, "")
	}

	if match == nil {
		errPage, ok := st.snap.ErrorPage()
		if !ok {
			// Rendered by the server's render hook.
			pc, err := s.assembler.Assemble(pagecontext.Input{URLOriginal: urlOriginal})
			if err != nil {
				return nil, 0, err
			}
			return pc, http.StatusNotFound, nil
		}
		pc, err := s.assemble(ctx, st, errPage.PageID, pagecontext.Input{URLOriginal: urlOriginal})
		if err != nil {
			return nil, 0, err
		}
		return pc, http.StatusNotFound, nil
	}

	pc, err := s.assemble(ctx, st, match.PageID, pagecontext.Input{URLOriginal: urlOriginal, Match: match})
	if err != nil {
		return nil, 0, err
	}
	if err := s.runDataHook(ctx, pc); err != nil {
		s.logger.Error("data hook failed", "page_id", pc.PageID, "url", urlOriginal, "error", err)
		s.config.Metrics.RecordError(err)

		errPage, ok := st.snap.ErrorPage()
		if !ok {
			return nil, 0, err
		}
		epc, aerr := s.assemble(ctx, st, errPage.PageID, pagecontext.Input{
			URLOriginal:    urlOriginal,
			Match:          match,
			RenderingError: true,
			Data:           map[string]any{"errorWhileRendering": err.Error()},
		})
		if aerr != nil {
			return nil, 0, stderrors.Join(err, aerr)
		}
		return epc, http.StatusInternalServerError, nil
	}
	return pc, http.StatusOK, nil
}

func (s *Server) assemble(ctx context.Context, st *appState, pageID string, in pagecontext.Input) (*pagecontext.PageContext, error) {
	ctx, span := middleware.StartSpan(ctx, "ssrpages.load", attribute.String("ssrpages.page_id", pageID))
	files, err := st.registry.Load(ctx, virtualmodule.NewID(pageID, pageconfig.SideServer))
	middleware.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	cfg, _ := st.snap.Page(pageID)
	in.Page = &pagecontext.LoadedPage{Config: cfg, CodeFiles: files}
	return s.assembler.Assemble(in)
}

func (s *Server) runDataHook(ctx context.Context, pc *pagecontext.PageContext) error {
	v, ok := pc.Exports[exportData]
	if !ok || v == nil {
		return nil
	}
	var hook DataHook
	switch fn := v.(type) {
	case DataHook:
		hook = fn
	case func(context.Context, *pagecontext.PageContext) (map[string]any, error):
		hook = fn
	default:
		return errors.New("E213").WithDetailf("page %s: export %q is a %T, want a data hook", pc.PageID, exportData, v)
	}

	ctx, span := middleware.StartSpan(ctx, "ssrpages.data", attribute.String("ssrpages.page_id", pc.PageID))
	fields, err := hook(ctx, pc)
	middleware.EndSpan(span, err)
	if err != nil {
		return err
	}
	for k, v := range fields {
		pc.Set(k, v)
	}
	if pc.PageProps != nil {
		pc.PageProps["is404"] = pc.IsNotFound()
	}
	return nil
}

// Render renders an assembled page context with the page's onRenderHtml
// export, or the server's render hook.
func (s *Server) Render(ctx context.Context, pc *pagecontext.PageContext) (string, error) {
	if pc == nil || !pc.Assembled() {
		return "", errors.New("E215").WithDetail("render requested for a page context that was not assembled")
	}

	hook := s.render
	if v, ok := pc.Exports[exportRender]; ok && v != nil {
		switch fn := v.(type) {
		case RenderHook:
			hook = fn
		case func(context.Context, *pagecontext.PageContext) (string, error):
			hook = fn
		default:
			return "", errors.New("E213").WithDetailf("page %s: export %q is a %T, want a render hook", pc.PageID, exportRender, v)
		}
	}
	if hook == nil {
		if pc.PageID == "" {
			return "", errors.New("E212").
				WithDetailf("no page matches %q and the server has no render hook", pc.URLOriginal).
				WithSuggestion("Pass server.WithRenderHook, or add a page with isErrorPage: true")
		}
		return "", errors.New("E212").
			WithDetailf("page %s has no %s export and the server has no render hook", pc.PageID, exportRender).
			WithSuggestion("Pass server.WithRenderHook, or export onRenderHtml from the page")
	}

	ctx, span := middleware.StartSpan(ctx, "ssrpages.render", attribute.String("ssrpages.page_id", pc.PageID))
	html, err := hook(ctx, pc)
	middleware.EndSpan(span, err)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", pc.PageID, err)
	}
	return html, nil
}

func injectBeforeBodyEnd(html, snippet string) string {
	i := strings.LastIndex(strings.ToLower(html), "</body>")
	if i < 0 {
		return html + snippet
	}
	return html[:i] + snippet + html[i:]
}

// writeError answers with the status matching err's code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	s.config.Metrics.RecordError(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	var se *errors.SSRError
	if stderrors.As(err, &se) && strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(se.FormatJSON()))
		return
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.HasCode(err, "E201"), errors.HasCode(err, "E210"), errors.HasCode(err, "E220"):
		return http.StatusBadRequest
	case errors.HasCode(err, "E202"):
		return http.StatusNotFound
	case assets.IsErrorFetchingStaticAssets(err), errors.HasCode(err, "E260"), errors.HasCode(err, "E261"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
