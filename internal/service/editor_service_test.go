package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pdf-workbench/internal/domain"

	"github.com/google/go-cmp/cmp"
)

func newTestEditor(t *testing.T) (*EditorService, *MockEngine, string) {
	t.Helper()
	dir := t.TempDir()
	logger := NewMockLogger()
	engine := NewMockEngine()
	saver := NewSaveService(dir, filepath.Join(dir, "temporary-files"), logger).WithClock(fixedClock)
	return NewEditorService(engine, saver, nil, nil, nil, logger), engine, dir
}

func keys(docs []DocumentSummary) []string {
	var out []string
	for _, d := range docs {
		out = append(out, d.Key)
	}
	return out
}

func TestEditorService_OpenSameNameTwice(t *testing.T) {
	editor, engine, _ := newTestEditor(t)
	engine.files["/docs/a.pdf"] = NewMockContent(3)
	engine.files["/other/a.pdf"] = NewMockContent(1)

	first, err := editor.Open("/docs/a.pdf", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	second, err := editor.Open("/other/a.pdf", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if first.Key != "a.pdf" || second.Key != "a.pdf | 1" {
		t.Fatalf("unexpected keys %q, %q", first.Key, second.Key)
	}
	if diff := cmp.Diff([]string{"a.pdf", "a.pdf | 1"}, keys(editor.Documents())); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	active, err := editor.Active()
	if err != nil || active.ID != second.ID {
		t.Fatalf("expected last opened document to be active, got %+v (%v)", active, err)
	}
	if first.Pages != 3 {
		t.Fatalf("expected 3 pages, got %d", first.Pages)
	}
}

func TestEditorService_OpenEncrypted(t *testing.T) {
	editor, engine, _ := newTestEditor(t)
	engine.files["/docs/secret.pdf"] = &MockContent{pages: 2, locked: true, password: "pw"}

	prompter := NewMockPrompter("wrong", "pw")
	doc, err := editor.Open("/docs/secret.pdf", prompter)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !doc.Protected || doc.Pages != 2 {
		t.Fatalf("expected unlocked protected document, got %+v", doc)
	}
	if diff := cmp.Diff([]string{"Open PDF/Password", "Open PDF/Password"}, prompter.asked); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}

	if _, err := editor.Open("/docs/secret.pdf", NewMockPrompter()); !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	wrong := NewMockPrompter("a", "b", "c", "d", "e", "f")
	if _, err := editor.Open("/docs/secret.pdf", wrong); !errors.Is(err, domain.ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
	if len(wrong.asked) != MaxPromptAttempts {
		t.Fatalf("expected %d attempts, got %d", MaxPromptAttempts, len(wrong.asked))
	}
	if len(editor.Documents()) != 1 {
		t.Fatalf("expected failed opens not to register documents")
	}
}

func TestEditorService_PageOperationsKeepMarkupAligned(t *testing.T) {
	editor, _, _ := newTestEditor(t)
	doc, err := editor.NewBlank()
	if err != nil {
		t.Fatalf("NewBlank failed: %v", err)
	}
	if doc.Key != domain.BlankSourcePath {
		t.Fatalf("unexpected key %q", doc.Key)
	}

	if _, err := editor.InsertBlankPage(doc.ID, 1); err != nil {
		t.Fatalf("InsertBlankPage failed: %v", err)
	}
	rect := domain.Rect{X0: 1, Y0: 1, X1: 9, Y1: 9}
	if _, err := editor.AddHighlight(doc.ID, 1, rect); err != nil {
		t.Fatalf("AddHighlight failed: %v", err)
	}
	if _, err := editor.InsertBlankPage(doc.ID, 0); err != nil {
		t.Fatalf("InsertBlankPage failed: %v", err)
	}

	markup, _ := editor.Markup(doc.ID)
	if len(markup) != 3 || len(markup[2].Highlights) != 1 {
		t.Fatalf("expected highlight to shift to page 2, got %+v", markup)
	}

	got, err := editor.DeletePage(doc.ID, 0)
	if err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}
	markup, _ = editor.Markup(doc.ID)
	if got.Pages != 2 || len(markup) != 2 || len(markup[1].Highlights) != 1 {
		t.Fatalf("expected highlight on page 1 of 2, got pages=%d markup=%+v", got.Pages, markup)
	}
	if !got.Dirty || got.Key != "*"+domain.BlankSourcePath {
		t.Fatalf("expected dirty marker, got %+v", got)
	}

	// Moving from the page count is accepted and changes nothing.
	if _, err := editor.MovePage(doc.ID, 2, 0); err != nil {
		t.Fatalf("MovePage failed: %v", err)
	}
	if _, err := editor.MovePage(doc.ID, 1, 0); err != nil {
		t.Fatalf("MovePage failed: %v", err)
	}
	markup, _ = editor.Markup(doc.ID)
	if len(markup[0].Highlights) != 1 {
		t.Fatalf("expected highlight to move with its page, got %+v", markup)
	}

	if _, err := editor.RotatePage(doc.ID, 5, domain.RotateLeft); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestEditorService_AddStroke(t *testing.T) {
	editor, _, _ := newTestEditor(t)
	doc, _ := editor.NewBlank()

	if _, err := editor.AddStroke(doc.ID, 0, []domain.Point{{X: 1, Y: 1}}); err != nil {
		t.Fatalf("AddStroke failed: %v", err)
	}
	if _, err := editor.AddStroke(doc.ID, 0, []domain.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}); err != nil {
		t.Fatalf("AddStroke failed: %v", err)
	}
	markup, _ := editor.Markup(doc.ID)
	if len(markup[0].Strokes) != 1 {
		t.Fatalf("expected only the multi-point stroke to be kept, got %d", len(markup[0].Strokes))
	}
	if _, err := editor.AddStroke(doc.ID, 3, []domain.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestEditorService_Merge(t *testing.T) {
	editor, engine, _ := newTestEditor(t)
	engine.files["/docs/src.pdf"] = NewMockContent(3)
	src, _ := editor.Open("/docs/src.pdf", nil)
	dst, _ := editor.NewBlank()

	got, err := editor.Merge(dst.ID, MergeSource{SessionID: src.ID}, 1, 0, -1, nil)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if got.Pages != 4 {
		t.Fatalf("expected 4 pages, got %d", got.Pages)
	}
	markup, _ := editor.Markup(dst.ID)
	if len(markup) != 4 {
		t.Fatalf("expected markup for 4 pages, got %d", len(markup))
	}

	got, err = editor.Merge(dst.ID, MergeSource{Path: "/docs/src.pdf"}, 0, 1, 1, nil)
	if err != nil || got.Pages != 5 {
		t.Fatalf("expected 5 pages after file merge, got %d (%v)", got.Pages, err)
	}

	if got, err = editor.RemoveMergedPage(dst.ID, 5); err != nil || got.Pages != 5 {
		t.Fatalf("expected index == page count to keep pages, got %d (%v)", got.Pages, err)
	}
	if got, err = editor.RemoveMergedPage(dst.ID, 0); err != nil || got.Pages != 4 {
		t.Fatalf("expected page to be removed, got %d (%v)", got.Pages, err)
	}
	if _, err := editor.Merge(dst.ID, MergeSource{}, 0, 0, -1, nil); err == nil {
		t.Fatalf("expected missing source to fail")
	}
}

func TestEditorService_CloseActivatesNeighbour(t *testing.T) {
	editor, _, _ := newTestEditor(t)
	a, _ := editor.NewBlank()
	b, _ := editor.NewBlank()
	c, _ := editor.NewBlank()

	if _, err := editor.Activate(b.ID); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if _, err := editor.AddHighlight(b.ID, 0, domain.Rect{X0: 0, Y0: 0, X1: 1, Y1: 1}); err != nil {
		t.Fatalf("AddHighlight failed: %v", err)
	}
	if _, err := editor.Close(b.ID, false); !errors.Is(err, domain.ErrUnsavedChanges) {
		t.Fatalf("expected ErrUnsavedChanges, got %v", err)
	}

	next, err := editor.Close(b.ID, true)
	if err != nil || next != a.ID {
		t.Fatalf("expected left neighbour to become active, got %q (%v)", next, err)
	}
	// The third document was "New File | 2" and is renumbered.
	if diff := cmp.Diff([]string{"New File", "New File | 1"}, keys(editor.Documents())); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	next, err = editor.Close(a.ID, false)
	if err != nil || next != c.ID {
		t.Fatalf("expected right neighbour to become active, got %q (%v)", next, err)
	}
	next, err = editor.Close(c.ID, false)
	if err != nil || next != "" {
		t.Fatalf("expected no active document, got %q (%v)", next, err)
	}
	if _, err := editor.Active(); !errors.Is(err, domain.ErrNoActiveDocument) {
		t.Fatalf("expected ErrNoActiveDocument, got %v", err)
	}
	if _, err := editor.Document(a.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEditorService_SaveMarksClean(t *testing.T) {
	editor, _, dir := newTestEditor(t)
	doc, _ := editor.NewBlank()
	if _, err := editor.SetCompression(doc.ID, true, false); err != nil {
		t.Fatalf("SetCompression failed: %v", err)
	}
	if diff := cmp.Diff([]string{domain.BlankSourcePath}, editor.Unsaved()); diff != "" {
		t.Fatalf("unsaved mismatch (-want +got):\n%s", diff)
	}

	path, saved, err := editor.Save(doc.ID, NewMockPrompter("out"), false)
	if err != nil || !saved {
		t.Fatalf("expected save, saved=%v err=%v", saved, err)
	}
	if path != filepath.Join(dir, "out.pdf") {
		t.Fatalf("unexpected path %q", path)
	}
	got, _ := editor.Document(doc.ID)
	if got.Dirty || got.SavedPath != path || !got.CompressBasic {
		t.Fatalf("unexpected state after save %+v", got)
	}
	if len(editor.Unsaved()) != 0 {
		t.Fatalf("expected no unsaved documents")
	}

	// A cancelled save leaves the dirty marker alone.
	if _, err := editor.SetPassword(doc.ID, "pw", "pw"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if _, saved, err := editor.Save(doc.ID, NewMockPrompter(), false); saved || err != nil {
		t.Fatalf("expected silent cancel, saved=%v err=%v", saved, err)
	}
	if got, _ := editor.Document(doc.ID); !got.Dirty {
		t.Fatalf("expected document to stay dirty")
	}
}

func TestEditorService_PasswordAndMetadata(t *testing.T) {
	editor, _, _ := newTestEditor(t)
	doc, _ := editor.NewBlank()

	var verr *domain.ValidationError
	if _, err := editor.SetPassword(doc.ID, "a", "b"); !errors.As(err, &verr) {
		t.Fatalf("expected mismatch to fail validation, got %v", err)
	}
	if _, err := editor.SetPassword(doc.ID, "a", "a"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if _, err := editor.SetPassword(doc.ID, "b", "b"); !errors.As(err, &verr) {
		t.Fatalf("expected existing password to block a new one, got %v", err)
	}
	got, err := editor.RemovePassword(doc.ID)
	if err != nil || got.Protected {
		t.Fatalf("expected password to be removed, got %+v (%v)", got, err)
	}

	got, err = editor.UpdateMetadata(doc.ID, map[string]string{domain.MetaAuthor: " Ada ", domain.MetaTitle: ""})
	if err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}
	if got.Metadata.Author != "Ada" || got.Metadata.Title != "" {
		t.Fatalf("unexpected metadata %+v", got.Metadata)
	}
	if _, err := editor.UpdateMetadata(doc.ID, map[string]string{"colour": "red"}); err == nil {
		t.Fatalf("expected unknown field to fail")
	}

	got, _ = editor.SetCompression(doc.ID, false, true)
	if !got.CompressBasic || !got.CompressMax {
		t.Fatalf("expected max compression to imply basic, got %+v", got)
	}
}

func TestEditorService_SignSavesFirst(t *testing.T) {
	editor, _, dir := newTestEditor(t)
	logger := NewMockLogger()
	signer := NewSignatureService(NewResourceStore(time.Second, logger), filepath.Join(dir, "keys"),
		filepath.Join(dir, "PDF Signatures"), filepath.Join(dir, "pub")+string(filepath.Separator), logger)
	editor.signer = signer

	pair, err := signer.GenerateKeypair(context.Background(), "", "Jane", "pw")
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}
	doc, _ := editor.NewBlank()

	prompter := NewMockPrompter("signed")
	res, err := editor.Sign(doc.ID, "", "pw", pair.PrivateKeyPath, prompter)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if res.PDFPath != filepath.Join(dir, "signed.pdf") {
		t.Fatalf("unexpected pdf path %q", res.PDFPath)
	}
	if res.SignaturePath != filepath.Join(dir, "PDF Signatures", "signed", "Jane.sig") {
		t.Fatalf("unexpected signature path %q", res.SignaturePath)
	}
	if diff := cmp.Diff([]string{"Save a Copy to Sign/Filename"}, prompter.asked); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(res.SignaturePath); err != nil {
		t.Fatalf("expected signature file: %v", err)
	}

	ver, err := signer.Verify(context.Background(), res.SignaturePath, res.PDFPath, pair.PublicKeyLocation, "Jane")
	if err != nil || !ver.Valid {
		t.Fatalf("expected signature to verify, got %+v (%v)", ver, err)
	}

	// Clean and already on disk: no prompt.
	again := NewMockPrompter()
	if _, err := editor.Sign(doc.ID, "Jane", "pw", pair.PrivateKeyPath, again); err != nil {
		t.Fatalf("second Sign failed: %v", err)
	}
	if len(again.asked) != 0 {
		t.Fatalf("expected no save prompt for a clean document")
	}
}

func TestEditorService_ExtractAndThumbnails(t *testing.T) {
	editor, engine, dir := newTestEditor(t)
	renderer := &MockRenderer{text: map[int]string{0: "Title\n\nline one\nline two"}}
	logger := NewMockLogger()
	editor.preview = NewPreviewService(renderer, 80, 2, logger)
	editor.extract = NewExtractService(engine, renderer, filepath.Join(dir, "temporary-files"), logger)

	doc, _ := editor.NewBlank()
	editor.preview.Wait()
	if thumbs, ok := editor.preview.Cached(doc.ID); !ok || len(thumbs) != 1 {
		t.Fatalf("expected background thumbnails for the active document, got %v", thumbs)
	}

	thumbs, err := editor.Thumbnails(context.Background(), doc.ID)
	if err != nil || len(thumbs) != 1 || string(thumbs[0].PNG) != "png 0 80" {
		t.Fatalf("unexpected thumbnails %v (%v)", thumbs, err)
	}

	path, err := editor.Extract(doc.ID, ExtractText, "notes.TXT", 0)
	if err != nil {
		t.Fatalf("Extract text failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "Title\n\nline one line two\n" {
		t.Fatalf("unexpected text %q", data)
	}
	if filepath.Base(path) != "notes.txt" {
		t.Fatalf("unexpected file name %q", path)
	}

	if _, err := editor.Extract(doc.ID, ExtractImages, "pics", 0); err != nil {
		t.Fatalf("Extract images failed: %v", err)
	}
	if len(engine.extracted) != 1 || filepath.Base(engine.extracted[0]) != "pics" {
		t.Fatalf("expected images to be extracted into pics, got %v", engine.extracted)
	}
	if _, err := editor.Extract(doc.ID, ExtractScreenshot, "page", 3); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := editor.Extract(doc.ID, "audio", "x", 0); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
	if _, err := editor.Extract(doc.ID, ExtractText, "../escape", 0); err == nil {
		t.Fatalf("expected path names to be rejected")
	}
}
