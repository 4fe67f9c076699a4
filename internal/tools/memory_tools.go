package tools

import (
	"context"
	"strings"

	"iris/internal/memory"
	"iris/internal/shared/utils/id"
)

// MemoryTools exposes the fact store to the assistant.
type MemoryTools struct {
	store *memory.Store
}

// NewMemoryTools wires the memory tool set.
func NewMemoryTools(store *memory.Store) *MemoryTools {
	return &MemoryTools{store: store}
}

// RememberFact stores a fact about the requesting user. The originating
// message body, when present on the context, is kept as provenance.
func (t *MemoryTools) RememberFact(ctx context.Context, content, category string, keywords []string) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	if category == "" {
		category = "general"
	}

	fact, err := t.store.Add(userEmail, content, category, id.MessageBodyFromContext(ctx), keywords, false)
	if err != nil {
		return Errorf("failed to remember that: %v", err)
	}
	return Success("Fact remembered", map[string]any{
		"fact_id":  fact.ID,
		"category": fact.Category,
	})
}

// RecallFacts searches the user's facts.
func (t *MemoryTools) RecallFacts(ctx context.Context, query string) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}

	var facts []memory.Fact
	if strings.TrimSpace(query) == "" {
		facts = t.store.All(userEmail)
	} else {
		facts = t.store.Search(userEmail, query)
	}
	return Success("Recalled facts", map[string]any{
		"facts": factMaps(facts),
		"count": len(facts),
	})
}

// ListFactsByCategory returns the user's facts in one category.
func (t *MemoryTools) ListFactsByCategory(ctx context.Context, category string) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	facts := t.store.ByCategory(userEmail, category)
	return Success("Facts in category "+category, map[string]any{
		"facts": factMaps(facts),
		"count": len(facts),
	})
}

// ForgetFact deletes a fact by ID.
func (t *MemoryTools) ForgetFact(ctx context.Context, factID string) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	deleted, err := t.store.Delete(userEmail, factID)
	if err != nil {
		return Errorf("failed to forget fact: %v", err)
	}
	if !deleted {
		return Errorf("no fact with ID %s", factID)
	}
	return Success("Fact forgotten", map[string]any{"fact_id": factID})
}

// UpdateFactContent rewrites a fact's content.
func (t *MemoryTools) UpdateFactContent(ctx context.Context, factID, content string) Result {
	userEmail := id.UserEmailFromContext(ctx)
	if userEmail == "" {
		return Errorf("no user on this request")
	}
	updated, err := t.store.Update(userEmail, factID, content)
	if err != nil {
		return Errorf("failed to update fact: %v", err)
	}
	if !updated {
		return Errorf("no fact with ID %s", factID)
	}
	return Success("Fact updated", map[string]any{"fact_id": factID})
}

func factMaps(facts []memory.Fact) []map[string]any {
	out := make([]map[string]any, 0, len(facts))
	for _, f := range facts {
		out = append(out, map[string]any{
			"fact_id":  f.ID,
			"content":  f.Content,
			"category": f.Category,
			"keywords": f.Keywords,
		})
	}
	return out
}
