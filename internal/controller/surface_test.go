package controller

import (
	"sync"

	"dealdesk/internal/view"
)

// fakeSurface records what the page would show.
type fakeSurface struct {
	mu         sync.Mutex
	identity   string
	lists      []view.List
	notices    []string
	editor     *view.EditForm
	resets     int
	closeCount int
}

func (s *fakeSurface) ShowIdentity(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = line
}

func (s *fakeSurface) ShowDeals(list view.List) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = append(s.lists, list)
}

func (s *fakeSurface) ShowNotice(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, message)
}

func (s *fakeSurface) OpenEditor(form view.EditForm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor = &form
}

func (s *fakeSurface) CloseEditor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor = nil
	s.closeCount++
}

func (s *fakeSurface) ResetCreateForm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
}

func (s *fakeSurface) labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lists) == 0 {
		return nil
	}
	last := s.lists[len(s.lists)-1]
	out := make([]string, 0, len(last.Items))
	for _, it := range last.Items {
		out = append(out, it.Label)
	}
	return out
}

func (s *fakeSurface) renders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists)
}

func (s *fakeSurface) lastNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.notices) == 0 {
		return ""
	}
	return s.notices[len(s.notices)-1]
}

func (s *fakeSurface) editorOpen() *view.EditForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

func (s *fakeSurface) firstID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lists) == 0 || len(s.lists[len(s.lists)-1].Items) == 0 {
		return ""
	}
	return s.lists[len(s.lists)-1].Items[0].ID
}
