package server

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/spelld/internal/schedule"
	"github.com/dshills/spelld/internal/settings"
	"github.com/dshills/spelld/internal/settings/loader"
	"github.com/dshills/spelld/internal/speller"
)

// codeAction offers quick fixes for diagnostics touching the requested
// range: one replacement action per suggestion, plus add-to-config and
// add-to-dictionary commands for unknown words.
func (s *Server) codeAction(raw json.RawMessage) (any, error) {
	var params CodeActionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &ResponseError{Code: codeInvalidParams, Message: err.Error()}
	}
	uri := params.TextDocument.URI

	doc, ok := s.docs.Get(uri)
	if !ok {
		return []CodeAction{}, nil
	}

	s.pubMu.Lock()
	pub, ok := s.published[uri]
	s.pubMu.Unlock()
	if !ok || pub.version != doc.Version {
		// Diagnostics are stale against the current text; offering
		// edits against old ranges would corrupt the document.
		return []CodeAction{}, nil
	}

	actions := []CodeAction{}
	var addable []string
	seen := make(map[string]struct{})

	for i, diag := range pub.diags {
		if !rangesTouch(diag.Range, params.Range) {
			continue
		}
		issue := pub.issues[i]
		if issue.RuleID != schedule.RuleUnknownWord {
			continue
		}

		for _, sug := range s.suggestionsFor(issue.Word) {
			actions = append(actions, CodeAction{
				Title:       sug,
				Kind:        CodeActionKindQuickFix,
				Diagnostics: []Diagnostic{diag},
				Edit: &WorkspaceEdit{
					Changes: map[string][]TextEdit{
						uri: {{Range: diag.Range, NewText: sug}},
					},
				},
			})
		}

		key := strings.ToLower(issue.Word)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			addable = append(addable, issue.Word)
		}
	}

	if len(addable) > 0 {
		if configs := s.resolver.ConfigurationFiles(); len(configs) > 0 {
			path := configs[0]
			actions = append(actions, CodeAction{
				Title: addWordsTitle(addable, filepath.Base(path)),
				Kind:  CodeActionKindQuickFix,
				Command: &Command{
					Title:     "Add to configuration",
					Command:   CommandAddWordsToConfig,
					Arguments: []any{AddWordsArgs{Path: path, Words: addable}},
				},
			})
		}
		if s.dictionaryPath != "" {
			actions = append(actions, CodeAction{
				Title: addWordsTitle(addable, filepath.Base(s.dictionaryPath)),
				Kind:  CodeActionKindQuickFix,
				Command: &Command{
					Title:     "Add to dictionary",
					Command:   CommandAddWordsToDictionary,
					Arguments: []any{AddWordsArgs{Path: s.dictionaryPath, Words: addable}},
				},
			})
		}
	}

	return actions, nil
}

func (s *Server) suggestionsFor(word string) []string {
	if s.sp == nil {
		return nil
	}
	return s.sp.Suggest(word, speller.DefaultMaxSuggestions)
}

func addWordsTitle(words []string, target string) string {
	if len(words) == 1 {
		return fmt.Sprintf("Add %q to %s", words[0], target)
	}
	return fmt.Sprintf("Add %d words to %s", len(words), target)
}

// executeCommand persists words into a configuration file or a custom
// dictionary. Both commands re-resolve settings afterwards so open
// documents lose their stale diagnostics.
func (s *Server) executeCommand(raw json.RawMessage) (any, error) {
	var params ExecuteCommandParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &ResponseError{Code: codeInvalidParams, Message: err.Error()}
	}

	switch params.Command {
	case CommandAddWordsToConfig:
		args, err := decodeAddWordsArgs(params.Arguments)
		if err != nil {
			return nil, err
		}
		if _, err := settings.AddWordsToSettingsAndUpdate(loader.DefaultFS(), args.Path, args.Words); err != nil {
			return nil, &ResponseError{Code: codeRequestFailed, Message: err.Error()}
		}
		s.log.Info().Str("path", args.Path).Strs("words", args.Words).Msg("words added to configuration")
		s.sched.ConfigChanged()
		return true, nil

	case CommandAddWordsToDictionary:
		args, err := decodeAddWordsArgs(params.Arguments)
		if err != nil {
			return nil, err
		}
		if err := settings.AddWordsToCustomDictionary(args.Path, args.Words); err != nil {
			return nil, &ResponseError{Code: codeRequestFailed, Message: err.Error()}
		}
		// The running checker learns the words directly so the
		// follow-up validation does not race the file watcher.
		if s.sp != nil {
			s.sp.Add(args.Words...)
		}
		s.log.Info().Str("path", args.Path).Strs("words", args.Words).Msg("words added to dictionary")
		s.sched.ConfigChanged()
		return true, nil

	default:
		return nil, &ResponseError{
			Code:    codeInvalidParams,
			Message: fmt.Sprintf("unknown command %q", params.Command),
		}
	}
}

func decodeAddWordsArgs(args []json.RawMessage) (AddWordsArgs, error) {
	var out AddWordsArgs
	if len(args) == 0 {
		return out, &ResponseError{Code: codeInvalidParams, Message: "missing arguments"}
	}
	if err := json.Unmarshal(args[0], &out); err != nil {
		return out, &ResponseError{Code: codeInvalidParams, Message: err.Error()}
	}
	if out.Path == "" || len(out.Words) == 0 {
		return out, &ResponseError{Code: codeInvalidParams, Message: "path and words required"}
	}
	return out, nil
}
