// Package server wires the semantic engine (internal/engine) to the LSP
// transport via tliron/glsp, the same library and wiring style the
// teacher's own internal/server package uses.
package server

import (
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/peterson-umoke/intelephense/internal/autoload"
	"github.com/peterson-umoke/intelephense/internal/engine"
	"github.com/peterson-umoke/intelephense/internal/phptree"
	"github.com/peterson-umoke/intelephense/internal/symbol"
)

const lsName = "intelephense"

var version = "0.1.0"

// Server is the language server: an Engine plus its glsp transport glue.
type Server struct {
	eng *engine.Engine
	h   protocol.Handler
}

// NewServer creates a new server. The engine's workspace root and PSR-4
// map are resolved lazily at Initialize, mirroring the teacher's
// deferred config.Container.LoadFromXML()/LoadPsr4Map() calls.
func NewServer() *Server {
	s := &Server{}
	s.h = protocol.Handler{
		Initialize:                 s.initialize,
		Initialized:                s.initialized,
		Shutdown:                   s.shutdown,
		SetTrace:                   s.setTrace,
		TextDocumentDidOpen:        s.didOpen,
		TextDocumentDidChange:      s.didChange,
		TextDocumentDidClose:       s.didClose,
		TextDocumentDefinition:     s.onDefinition,
		TextDocumentDocumentSymbol: s.onDocumentSymbol,
		WorkspaceSymbol:            s.onWorkspaceSymbol,
		TextDocumentCompletion:     s.onCompletion,
		TextDocumentSignatureHelp:  s.onSignatureHelp,
	}
	return s
}

// Run runs the language server over stdio.
func (s *Server) Run() {
	server := glspserver.NewServer(&s.h, lsName, false)
	server.RunStdio()
}

func (s *Server) initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	caps := s.h.CreateServerCapabilities()
	openClose := true
	change := protocol.TextDocumentSyncKindIncremental
	caps.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &change,
	}
	defProvider := true
	caps.DefinitionProvider = defProvider
	caps.DocumentSymbolProvider = defProvider
	caps.WorkspaceSymbolProvider = defProvider
	caps.SignatureHelpProvider = &protocol.SignatureHelpOptions{TriggerCharacters: []string{"(", ","}}
	caps.CompletionProvider = &protocol.CompletionOptions{TriggerCharacters: []string{"$", ">", ":"}}

	root := "."
	if params.RootURI != nil {
		root = uriToPath(*params.RootURI)
	} else if len(params.WorkspaceFolders) > 0 {
		root = uriToPath(params.WorkspaceFolders[0].URI)
	}

	var m autoload.Map
	if params.InitializationOptions != nil {
		if opts, ok := params.InitializationOptions.(map[string]any); ok {
			if p, ok := opts["psr4_map_path"]; ok {
				if path, ok := p.(string); ok && path != "" {
					if loaded, err := autoload.LoadMap(path); err == nil {
						m = loaded
					} else {
						commonlog.GetLoggerf("intelephense.server").Warningf("could not load psr4 map: %v", err)
					}
				}
			}
		}
	}

	s.eng = engine.New(root, m)

	logger := commonlog.GetLoggerf("intelephense.server")
	if n, err := s.eng.DiscoverWorkspace(root); err != nil {
		logger.Warningf("workspace discovery failed: %v", err)
	} else {
		logger.Infof("discovered %d workspace symbols under %s", n, root)
	}

	return protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &version,
		},
	}, nil
}

func (s *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error { return nil }
func (s *Server) shutdown(_ *glsp.Context) error                                   { return nil }
func (s *Server) setTrace(_ *glsp.Context, p *protocol.SetTraceParams) error {
	protocol.SetTraceValue(p.Value)
	return nil
}

func (s *Server) didOpen(_ *glsp.Context, p *protocol.DidOpenTextDocumentParams) error {
	return s.eng.OpenDocument(engine.DocumentItem{
		URI:        string(p.TextDocument.URI),
		LanguageID: p.TextDocument.LanguageID,
		Text:       p.TextDocument.Text,
		Version:    int(p.TextDocument.Version),
	})
}

func (s *Server) didChange(_ *glsp.Context, p *protocol.DidChangeTextDocumentParams) error {
	uri := string(p.TextDocument.URI)
	text, ok := s.eng.DocumentText(uri)
	if !ok {
		return nil
	}

	for _, c := range p.ContentChanges {
		switch ch := c.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = ch.Text
		case protocol.TextDocumentContentChangeEvent:
			start := ch.Range.Start.IndexIn(text)
			end := ch.Range.End.IndexIn(text)
			if start >= 0 && end >= start && end <= len(text) {
				text = text[:start] + ch.Text + text[end:]
			}
		}
	}

	// A precise tree-sitter incremental edit needs byte/point coordinates
	// for exactly what moved; computing that from an arbitrary sequence of
	// LSP ranges is the transport's job, not the engine's. Passing nil
	// still benefits from §4.I's debounce, just without incremental tree
	// reuse on the re-parse.
	return s.eng.EditDocument(uri, []byte(text), nil)
}

func (s *Server) didClose(_ *glsp.Context, p *protocol.DidCloseTextDocumentParams) error {
	s.eng.CloseDocument(string(p.TextDocument.URI))
	return nil
}

func (s *Server) onDefinition(_ *glsp.Context, p *protocol.DefinitionParams) (any, error) {
	loc, ok := s.eng.ProvideDefinition(string(p.TextDocument.URI), toEnginePoint(p.Position))
	if !ok {
		return nil, nil
	}
	return []protocol.Location{toProtocolLocation(loc)}, nil
}

func (s *Server) onDocumentSymbol(_ *glsp.Context, p *protocol.DocumentSymbolParams) (any, error) {
	syms := s.eng.DocumentSymbols(string(p.TextDocument.URI))
	if len(syms) == 0 {
		return nil, nil
	}
	out := make([]protocol.DocumentSymbol, 0, len(syms))
	for _, sym := range syms {
		out = append(out, toDocumentSymbol(sym))
	}
	return out, nil
}

func (s *Server) onWorkspaceSymbol(_ *glsp.Context, p *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	syms := s.eng.WorkspaceSymbols(p.Query)
	out := make([]protocol.SymbolInformation, 0, len(syms))
	for _, sym := range syms {
		out = append(out, protocol.SymbolInformation{
			Name:     sym.Name,
			Kind:     toSymbolKind(sym.Kind),
			Location: toProtocolLocation(sym.Location),
		})
	}
	return out, nil
}

func (s *Server) onCompletion(_ *glsp.Context, p *protocol.CompletionParams) (any, error) {
	uri := string(p.TextDocument.URI)
	pos := toEnginePoint(p.Position)
	syms := s.eng.ProvideCompletions(uri, pos, "")
	if len(syms) == 0 {
		return nil, nil
	}
	out := make([]protocol.CompletionItem, 0, len(syms))
	for _, sym := range syms {
		kind := toCompletionItemKind(sym.Kind)
		detail := sym.Type.String()
		out = append(out, protocol.CompletionItem{
			Label:  sym.Name,
			Kind:   &kind,
			Detail: &detail,
		})
	}
	return protocol.CompletionList{IsIncomplete: false, Items: out}, nil
}

func (s *Server) onSignatureHelp(_ *glsp.Context, p *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	callable := s.eng.ProvideSignatureHelp(string(p.TextDocument.URI), toEnginePoint(p.Position))
	if callable == nil {
		return nil, nil
	}

	params := make([]protocol.ParameterInformation, 0, len(callable.Children))
	for _, param := range callable.Children {
		label := "$" + param.Name
		if !param.Type.IsEmpty() {
			label = param.Type.String() + " " + label
		}
		params = append(params, protocol.ParameterInformation{Label: label})
	}

	label := callable.Name + "(...)"
	sig := protocol.SignatureInformation{
		Label:      label,
		Parameters: params,
	}
	zero := uint32(0)
	return &protocol.SignatureHelp{
		Signatures:      []protocol.SignatureInformation{sig},
		ActiveSignature: &zero,
	}, nil
}

func toEnginePoint(p protocol.Position) phptree.Point {
	return phptree.Point{Line: int(p.Line), Column: int(p.Character)}
}

func toProtocolLocation(loc symbol.Location) protocol.Location {
	return protocol.Location{
		URI: protocol.DocumentUri(loc.URI),
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(loc.StartLine - 1), Character: uint32(loc.StartColumn)},
			End:   protocol.Position{Line: uint32(loc.EndLine - 1), Character: uint32(loc.EndColumn)},
		},
	}
}

func toDocumentSymbol(sym *symbol.Symbol) protocol.DocumentSymbol {
	children := make([]protocol.DocumentSymbol, 0, len(sym.Children))
	for _, c := range sym.Children {
		children = append(children, toDocumentSymbol(c))
	}
	rng := protocol.Range{
		Start: protocol.Position{Line: uint32(sym.Location.StartLine - 1), Character: uint32(sym.Location.StartColumn)},
		End:   protocol.Position{Line: uint32(sym.Location.EndLine - 1), Character: uint32(sym.Location.EndColumn)},
	}
	return protocol.DocumentSymbol{
		Name:           sym.Name,
		Kind:           toSymbolKind(sym.Kind),
		Range:          rng,
		SelectionRange: rng,
		Children:       children,
	}
}

func toSymbolKind(k symbol.Kind) protocol.SymbolKind {
	switch k {
	case symbol.KindClass:
		return protocol.SymbolKindClass
	case symbol.KindInterface:
		return protocol.SymbolKindInterface
	case symbol.KindTrait:
		return protocol.SymbolKindClass
	case symbol.KindFunction:
		return protocol.SymbolKindFunction
	case symbol.KindMethod:
		return protocol.SymbolKindMethod
	case symbol.KindProperty:
		return protocol.SymbolKindProperty
	case symbol.KindClassConstant, symbol.KindConstant:
		return protocol.SymbolKindConstant
	case symbol.KindParameter, symbol.KindVariable:
		return protocol.SymbolKindVariable
	case symbol.KindNamespace:
		return protocol.SymbolKindNamespace
	default:
		return protocol.SymbolKindVariable
	}
}

func toCompletionItemKind(k symbol.Kind) protocol.CompletionItemKind {
	switch k {
	case symbol.KindClass, symbol.KindInterface, symbol.KindTrait:
		return protocol.CompletionItemKindClass
	case symbol.KindFunction:
		return protocol.CompletionItemKindFunction
	case symbol.KindMethod:
		return protocol.CompletionItemKindMethod
	case symbol.KindProperty:
		return protocol.CompletionItemKindProperty
	case symbol.KindClassConstant, symbol.KindConstant:
		return protocol.CompletionItemKindConstant
	default:
		return protocol.CompletionItemKindVariable
	}
}

func uriToPath(u string) string {
	const prefix = "file://"
	if len(u) >= len(prefix) && u[:len(prefix)] == prefix {
		return u[len(prefix):]
	}
	return u
}
