package main

import (
	"flag"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"pychart/internal/lsp"
)

const (
	lsName    = "pychart-lsp"
	version   = "0.1"
	sourceExt = ".pc"
)

var (
	store   = lsp.NewStore()
	handler protocol.Handler
	log     = commonlog.GetLogger("pychart.lsp")
)

func main() {
	verbose := flag.Int("v", 0, "log verbosity (logs go to -log or stderr)")
	logFile := flag.String("log", "", "write logs to this file")
	flag.Parse()

	var logPath *string
	if *logFile != "" {
		logPath = logFile
	}
	commonlog.Configure(*verbose, logPath)

	handler = protocol.Handler{
		Initialize:                 initialize,
		Initialized:                initialized,
		Shutdown:                   shutdown,
		SetTrace:                   setTrace,
		TextDocumentDidOpen:        textDocumentDidOpen,
		TextDocumentDidChange:      textDocumentDidChange,
		TextDocumentDidSave:        textDocumentDidSave,
		TextDocumentDidClose:       textDocumentDidClose,
		TextDocumentDocumentSymbol: textDocumentDocumentSymbol,
		TextDocumentFormatting:     textDocumentFormatting,
	}

	s := server.NewServer(&handler, lsName, false)
	if err := s.RunStdio(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("%s %s initializing", lsName, version)

	full := protocol.TextDocumentSyncKindFull
	caps := protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: &protocol.True,
			Change:    &full,
			Save:      protocol.SaveOptions{IncludeText: &protocol.True},
		},
		DocumentSymbolProvider:     true,
		DocumentFormattingProvider: true,
	}

	return protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: ptrString(version),
		},
	}, nil
}

func initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	store.Set(uri, params.TextDocument.Text, params.TextDocument.Version)
	publishDiagnostics(ctx, uri, params.TextDocument.Text)
	return nil
}

func textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	if len(params.ContentChanges) == 0 {
		return nil
	}

	text, ok := extractFullText(params.ContentChanges[len(params.ContentChanges)-1])
	if !ok {
		return nil
	}

	if !store.Set(uri, text, params.TextDocument.Version) {
		log.Debugf("%s: dropping stale version %d", uri, params.TextDocument.Version)
		return nil
	}
	publishDiagnostics(ctx, uri, text)
	return nil
}

func textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	if params.Text != nil {
		doc, _ := store.Get(uri)
		store.Set(uri, *params.Text, doc.Version)
	}
	if doc, ok := store.Get(uri); ok {
		publishDiagnostics(ctx, uri, doc.Text)
	}
	return nil
}

func textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	store.Delete(uri)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc, ok := store.Get(string(params.TextDocument.URI))
	if !ok || !isSource(string(params.TextDocument.URI)) {
		return []protocol.DocumentSymbol{}, nil
	}
	return lsp.DocumentSymbols(doc.Text), nil
}

func textDocumentFormatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	uri := string(params.TextDocument.URI)
	doc, ok := store.Get(uri)
	if !ok || !isSource(uri) {
		return []protocol.TextEdit{}, nil
	}
	return lsp.FormatEdits(doc.Text, params.Options), nil
}

func publishDiagnostics(ctx *glsp.Context, uri string, text string) {
	diags := []protocol.Diagnostic{}
	if isSource(uri) {
		ds := lsp.Analyze(fileName(uri), text)
		log.Debugf("%s: %d diagnostics", uri, len(ds))
		diags = lsp.ToLspDiagnostics(text, ds)
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: diags,
	})
}

func isSource(uri string) bool {
	return strings.HasSuffix(strings.ToLower(uri), sourceExt)
}

func fileName(uri string) string {
	return path.Base(strings.TrimPrefix(uri, "file://"))
}

func extractFullText(change any) (string, bool) {
	switch typed := change.(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		return typed.Text, true
	case protocol.TextDocumentContentChangeEvent:
		return typed.Text, true
	default:
		return "", false
	}
}

func ptrString(s string) *string { return &s }
