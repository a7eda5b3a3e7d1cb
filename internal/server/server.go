// Package server implements the spell-checking language server. It
// speaks JSON-RPC 2.0 over a byte stream with Content-Length framing,
// tracks open documents, schedules validation through the resolver and
// scheduler, and publishes diagnostics tagged with the document version
// they were computed from.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/spelld/internal/document"
	"github.com/dshills/spelld/internal/resolve"
	"github.com/dshills/spelld/internal/schedule"
	"github.com/dshills/spelld/internal/settings"
	"github.com/dshills/spelld/internal/speller"
	"github.com/dshills/spelld/internal/watch"
)

const (
	serverName       = "spelld"
	diagnosticSource = "spelld"
)

// ErrExitWithoutShutdown is returned by Run when the client sends exit
// without a preceding shutdown request. Callers map it to a nonzero
// process exit code.
var ErrExitWithoutShutdown = errors.New("exit received before shutdown")

// Method names handled by the server.
const (
	methodInitialize  = "initialize"
	methodInitialized = "initialized"
	methodShutdown    = "shutdown"
	methodExit        = "exit"

	methodDidOpen            = "textDocument/didOpen"
	methodDidChange          = "textDocument/didChange"
	methodDidClose           = "textDocument/didClose"
	methodCodeAction         = "textDocument/codeAction"
	methodPublishDiagnostics = "textDocument/publishDiagnostics"

	methodDidChangeConfiguration = "workspace/didChangeConfiguration"
	methodExecuteCommand         = "workspace/executeCommand"

	methodEnabledCheck       = "spelld/isSpellCheckEnabled"
	methodDocumentConfig     = "spelld/getConfigurationForDocument"
	methodSplitText          = "spelld/splitTextIntoWords"
	methodRegisterConfigFile = "spelld/registerConfigurationFile"
)

// published remembers the last diagnostics sent for a document so code
// actions can match against them. diags[i] was derived from issues[i].
type published struct {
	version int
	issues  []schedule.Issue
	diags   []Diagnostic
}

// Server wires the document store, settings resolver, scheduler, and
// speller behind the protocol surface. One Server serves one client
// connection.
type Server struct {
	log     zerolog.Logger
	version string

	resolver  *resolve.Resolver
	docs      *document.Store
	sp        *speller.Speller
	validator schedule.Validator
	sched     *schedule.Scheduler

	conn    *conn
	watcher *watch.Watcher

	dictionaryPath string
	dictAbs        string
	schedOpts      []schedule.Option
	watchConfigs   bool
	watchOpts      []watch.Option

	pubMu     sync.Mutex
	published map[string]published

	shutdown atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger. Child components inherit it.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithVersion sets the version reported in the initialize response.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithResolver substitutes a pre-configured settings resolver.
func WithResolver(r *resolve.Resolver) Option {
	return func(s *Server) { s.resolver = r }
}

// WithSpeller substitutes a pre-loaded speller, used both as the
// validator and as the suggestion source for code actions.
func WithSpeller(sp *speller.Speller) Option {
	return func(s *Server) { s.sp = sp }
}

// WithValidator overrides the validator wired into the scheduler.
// Suggestions still come from the speller when one is present.
func WithValidator(v schedule.Validator) Option {
	return func(s *Server) { s.validator = v }
}

// WithDictionaryPath sets the writable custom dictionary file offered
// by add-to-dictionary code actions.
func WithDictionaryPath(path string) Option {
	return func(s *Server) { s.dictionaryPath = path }
}

// WithSchedulerOptions passes extra options to the scheduler.
func WithSchedulerOptions(opts ...schedule.Option) Option {
	return func(s *Server) { s.schedOpts = append(s.schedOpts, opts...) }
}

// WithConfigWatching watches registered configuration files and the
// custom dictionary on disk, revalidating open documents when one
// changes outside the editor.
func WithConfigWatching(opts ...watch.Option) Option {
	return func(s *Server) {
		s.watchConfigs = true
		s.watchOpts = append(s.watchOpts, opts...)
	}
}

// New creates a server. Without WithSpeller or WithValidator it builds
// a default speller with an empty dictionary; callers normally load a
// word list first and pass it in.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		log:       zerolog.Nop(),
		version:   "dev",
		docs:      document.NewStore(),
		published: make(map[string]published),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.resolver == nil {
		s.resolver = resolve.New(resolve.WithLogger(s.log))
	}
	if s.sp == nil && s.validator == nil {
		sp, err := speller.New()
		if err != nil {
			return nil, fmt.Errorf("creating speller: %w", err)
		}
		s.sp = sp
	}
	if s.validator == nil {
		s.validator = s.sp
	}

	schedOpts := append([]schedule.Option{schedule.WithLogger(s.log)}, s.schedOpts...)
	s.sched = schedule.New(s.resolver, s.validator, s.publishResult, schedOpts...)

	if s.watchConfigs {
		watchOpts := append([]watch.Option{watch.WithLogger(s.log)}, s.watchOpts...)
		w, err := watch.New(s.fileChanged, watchOpts...)
		if err != nil {
			s.sched.Close()
			return nil, fmt.Errorf("creating config watcher: %w", err)
		}
		s.watcher = w
		for _, path := range s.resolver.ConfigurationFiles() {
			if err := w.Add(path); err != nil {
				s.log.Warn().Err(err).Str("path", path).Msg("cannot watch configuration file")
			}
		}
		if s.dictionaryPath != "" {
			if abs, err := filepath.Abs(s.dictionaryPath); err == nil {
				s.dictAbs = abs
			}
			if err := w.Add(s.dictionaryPath); err != nil {
				s.log.Warn().Err(err).Str("path", s.dictionaryPath).Msg("cannot watch dictionary file")
			}
		}
	}
	return s, nil
}

// fileChanged handles a watched file changing on disk. Dictionary
// edits are folded into the running checker; additions take effect,
// removals need a restart.
func (s *Server) fileChanged(path string) {
	if s.dictAbs != "" && path == s.dictAbs && s.sp != nil {
		if err := s.sp.AddDictionaryFile(path); err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("reloading dictionary")
		}
	}
	s.log.Info().Str("path", path).Msg("watched file changed on disk")
	s.sched.ConfigChanged()
}

// Run serves the connection until the client disconnects or completes
// the shutdown/exit handshake. A clean exit and a closed input stream
// both return nil.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	s.conn = newConn(r, w)
	defer s.sched.Close()
	if s.watcher != nil {
		defer s.watcher.Close()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := s.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		var msg RequestMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.replyError(nil, codeParseError, "parse error: "+err.Error())
			continue
		}

		if msg.Method == methodExit {
			if s.shutdown.Load() {
				return nil
			}
			return ErrExitWithoutShutdown
		}

		if len(msg.ID) == 0 || string(msg.ID) == "null" {
			s.handleNotification(&msg)
			continue
		}
		s.handleRequest(&msg)
	}
}

func (s *Server) handleNotification(msg *RequestMessage) {
	if s.shutdown.Load() {
		return
	}

	var err error
	switch msg.Method {
	case methodInitialized:
	case methodDidOpen:
		err = s.didOpen(msg.Params)
	case methodDidChange:
		err = s.didChange(msg.Params)
	case methodDidClose:
		err = s.didClose(msg.Params)
	case methodDidChangeConfiguration:
		err = s.didChangeConfiguration(msg.Params)
	case methodRegisterConfigFile:
		err = s.registerConfigurationFile(msg.Params)
	default:
		s.log.Debug().Str("method", msg.Method).Msg("ignoring notification")
	}
	if err != nil {
		s.log.Error().Err(err).Str("method", msg.Method).Msg("notification failed")
	}
}

func (s *Server) handleRequest(msg *RequestMessage) {
	if s.shutdown.Load() && msg.Method != methodShutdown {
		s.replyError(msg.ID, codeInvalidRequest, "server is shutting down")
		return
	}

	var (
		result any
		err    error
	)
	switch msg.Method {
	case methodInitialize:
		result, err = s.initialize(msg.Params)
	case methodShutdown:
		s.shutdown.Store(true)
	case methodCodeAction:
		result, err = s.codeAction(msg.Params)
	case methodExecuteCommand:
		result, err = s.executeCommand(msg.Params)
	case methodEnabledCheck:
		result, err = s.enabledCheck(msg.Params)
	case methodDocumentConfig:
		result, err = s.documentConfig(msg.Params)
	case methodSplitText:
		result, err = s.splitText(msg.Params)
	default:
		s.replyError(msg.ID, codeMethodNotFound, "method not found: "+msg.Method)
		return
	}

	if err != nil {
		var rerr *ResponseError
		if !errors.As(err, &rerr) {
			rerr = &ResponseError{Code: codeInternalError, Message: err.Error()}
		}
		s.reply(msg.ID, nil, rerr)
		return
	}
	s.reply(msg.ID, result, nil)
}

// reply sends a response. A nil result with no error becomes a JSON
// null result, which shutdown and boolean-less requests rely on.
func (s *Server) reply(id json.RawMessage, result any, rerr *ResponseError) {
	resp := ResponseMessage{JSONRPC: jsonRPCVersion, ID: id}
	if rerr != nil {
		resp.Error = rerr
	} else {
		data, err := json.Marshal(result)
		if err != nil {
			resp.Error = &ResponseError{Code: codeInternalError, Message: "marshal result: " + err.Error()}
		} else {
			resp.Result = data
		}
	}
	if err := s.conn.WriteMessage(&resp); err != nil {
		s.log.Error().Err(err).Msg("write response")
	}
}

func (s *Server) replyError(id json.RawMessage, code int, message string) {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	s.reply(id, nil, &ResponseError{Code: code, Message: message})
}

func (s *Server) notify(method string, params any) {
	msg := NotificationMessage{JSONRPC: jsonRPCVersion, Method: method, Params: params}
	if err := s.conn.WriteMessage(&msg); err != nil {
		s.log.Error().Err(err).Str("method", method).Msg("write notification")
	}
}

func (s *Server) initialize(raw json.RawMessage) (any, error) {
	var params InitializeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, &ResponseError{Code: codeInvalidParams, Message: err.Error()}
		}
	}
	if params.ClientInfo != nil {
		s.log.Info().
			Str("client", params.ClientInfo.Name).
			Str("client_version", params.ClientInfo.Version).
			Msg("client connected")
	}

	return InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: TextDocumentSyncOptions{
				OpenClose: true,
				Change:    SyncIncremental,
			},
			CodeActionProvider: true,
			ExecuteCommandProvider: ExecuteCommandOptions{
				Commands: []string{CommandAddWordsToConfig, CommandAddWordsToDictionary},
			},
		},
		ServerInfo: ServerInfo{Name: serverName, Version: s.version},
	}, nil
}

func (s *Server) didOpen(raw json.RawMessage) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("didOpen params: %w", err)
	}
	td := params.TextDocument

	if err := s.docs.Open(td.URI, td.LanguageID, td.Version, td.Text); err != nil {
		return fmt.Errorf("open %s: %w", td.URI, err)
	}
	s.log.Debug().
		Str("uri", td.URI).
		Str("language", td.LanguageID).
		Int("version", td.Version).
		Msg("document opened")

	s.sched.Enqueue(schedule.Request{
		URI:        td.URI,
		LanguageID: td.LanguageID,
		Version:    td.Version,
		Text:       td.Text,
	})
	return nil
}

func (s *Server) didChange(raw json.RawMessage) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("didChange params: %w", err)
	}
	uri := params.TextDocument.URI

	doc, ok := s.docs.Get(uri)
	if !ok {
		return fmt.Errorf("change for unopened document %s", uri)
	}

	text := doc.Text
	for _, change := range params.ContentChanges {
		text = applyChange(text, change)
	}

	updated, err := s.docs.Update(uri, params.TextDocument.Version, text)
	if err != nil {
		return fmt.Errorf("update %s: %w", uri, err)
	}

	s.sched.Enqueue(schedule.Request{
		URI:        uri,
		LanguageID: updated.LanguageID,
		Version:    updated.Version,
		Text:       updated.Text,
	})
	return nil
}

// applyChange applies one content change. A change without a range
// replaces the whole document.
func applyChange(text string, change TextDocumentContentChangeEvent) string {
	if change.Range == nil {
		return change.Text
	}
	idx := newPositionIndex(text)
	start := idx.offset(change.Range.Start)
	end := idx.offset(change.Range.End)
	if end < start {
		start, end = end, start
	}
	return text[:start] + change.Text + text[end:]
}

func (s *Server) didClose(raw json.RawMessage) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("didClose params: %w", err)
	}
	uri := params.TextDocument.URI

	if err := s.docs.Close(uri); err != nil {
		return fmt.Errorf("close %s: %w", uri, err)
	}
	s.sched.Forget(uri)

	s.pubMu.Lock()
	delete(s.published, uri)
	s.pubMu.Unlock()

	// Closed documents keep no stale squiggles on the client.
	s.notify(methodPublishDiagnostics, PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []Diagnostic{},
	})
	return nil
}

func (s *Server) didChangeConfiguration(raw json.RawMessage) error {
	var params DidChangeConfigurationParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("didChangeConfiguration params: %w", err)
	}

	// Client settings arrive nested under the section name.
	var wrapper struct {
		Spelld *settings.Document `json:"spelld"`
	}
	if len(params.Settings) > 0 {
		if err := json.Unmarshal(params.Settings, &wrapper); err != nil {
			return fmt.Errorf("decoding settings section: %w", err)
		}
	}

	if wrapper.Spelld != nil {
		s.resolver.ApplyClientSettings(wrapper.Spelld)
	}
	s.sched.ConfigChanged()
	return nil
}

func (s *Server) registerConfigurationFile(raw json.RawMessage) error {
	var params RegisterConfigurationFileParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return fmt.Errorf("registerConfigurationFile params: %w", err)
	}
	if params.Path == "" {
		return fmt.Errorf("registerConfigurationFile: empty path")
	}

	s.resolver.RegisterConfigurationFile(params.Path)
	if s.watcher != nil {
		if err := s.watcher.Add(params.Path); err != nil {
			s.log.Warn().Err(err).Str("path", params.Path).Msg("cannot watch configuration file")
		}
	}
	s.log.Info().Str("path", params.Path).Msg("configuration file registered")
	s.sched.ConfigChanged()
	return nil
}

func (s *Server) enabledCheck(raw json.RawMessage) (any, error) {
	var params EnabledCheckParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &ResponseError{Code: codeInvalidParams, Message: err.Error()}
	}
	eff := s.resolver.GetURISettings(params.URI)
	return EnabledCheckResult{
		LanguageEnabled: eff.LanguageEnabled(params.LanguageID),
		FileEnabled:     !eff.Exclusions.MatchURI(params.URI),
	}, nil
}

func (s *Server) documentConfig(raw json.RawMessage) (any, error) {
	var params EnabledCheckParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &ResponseError{Code: codeInvalidParams, Message: err.Error()}
	}
	eff := s.resolver.GetURISettings(params.URI)
	return DocumentConfigResult{
		LanguageEnabled: eff.LanguageEnabled(params.LanguageID),
		FileEnabled:     !eff.Exclusions.MatchURI(params.URI),
		Settings:        s.resolver.GlobalSettings(),
		DocSettings:     eff.Doc,
	}, nil
}

func (s *Server) splitText(raw json.RawMessage) (any, error) {
	var params SplitTextParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &ResponseError{Code: codeInvalidParams, Message: err.Error()}
	}

	tokens := speller.ExtractWords(params.Text)
	seen := make(map[string]struct{}, len(tokens))
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		w := strings.ToLower(tok.Word)
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return SplitTextResult{Words: words}, nil
}

// publishResult converts a validation result into diagnostics and sends
// them. It runs on the scheduler's emit path, so it must not call back
// into the scheduler.
func (s *Server) publishResult(res schedule.Result) {
	doc, ok := s.docs.Get(res.URI)
	if !ok || doc.Version != res.Version {
		return
	}

	idx := newPositionIndex(doc.Text)
	diags := make([]Diagnostic, 0, len(res.Issues))
	for _, issue := range res.Issues {
		diags = append(diags, Diagnostic{
			Range:    idx.rangeFor(issue.Start, issue.End),
			Severity: severityFor(issue.RuleID),
			Code:     issue.RuleID,
			Source:   diagnosticSource,
			Message:  issueMessage(issue),
		})
	}

	s.pubMu.Lock()
	s.published[res.URI] = published{version: res.Version, issues: res.Issues, diags: diags}
	s.pubMu.Unlock()

	s.notify(methodPublishDiagnostics, PublishDiagnosticsParams{
		URI:         res.URI,
		Version:     res.Version,
		Diagnostics: diags,
	})
}

func severityFor(ruleID string) DiagnosticSeverity {
	if ruleID == schedule.RuleFlaggedWord {
		return SeverityWarning
	}
	return SeverityInformation
}

func issueMessage(issue schedule.Issue) string {
	if issue.RuleID == schedule.RuleFlaggedWord {
		return fmt.Sprintf("Forbidden word %q", issue.Word)
	}
	return fmt.Sprintf("Unknown word %q", issue.Word)
}
