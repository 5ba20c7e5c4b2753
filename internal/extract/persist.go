package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/schema"
	"github.com/gjeldshjelp/debt-cli/internal/store"
)

// Saved is what Save validated and wrote.
type Saved struct {
	Key     store.Key          `json:"key"`
	Outcome model.Outcome      `json:"outcome"`
	Records []model.DebtRecord `json:"records"`
	Issues  []schema.Issue     `json:"issues,omitempty"`
	Written bool               `json:"written"`
}

type unvalidatedCandidates struct {
	Site       string            `json:"site"`
	Candidates []model.Candidate `json:"candidates"`
	Issues     []schema.Issue    `json:"issues"`
}

// Save validates the result's candidates and persists its snapshot under
// key. Lockout and unexpected outcomes write nothing. Records are written
// whether or not they validate; failures are also kept in the unvalidated
// side entry.
func Save(ctx context.Context, st store.Store, key store.Key, res *Result) (*Saved, error) {
	if key.Site == "" {
		key.Site = res.Site
	}
	saved := &Saved{Key: key, Outcome: res.Outcome, Records: []model.DebtRecord{}}
	if !res.Outcome.Successful() {
		zap.L().Info("extract: nothing to save",
			zap.String("key", key.String()),
			zap.String("outcome", res.Outcome.String()),
		)
		return saved, nil
	}

	payload := res.Payload
	if payload == nil {
		cv := schema.ValidateCollection(model.CollectionCandidate{
			CreditSite: model.Ptr(res.Site),
			Debts:      res.Candidates,
			IsCurrent:  model.Ptr(true),
		})
		saved.Records = append(saved.Records, cv.Value.Debts...)
		saved.Issues = cv.Issues
		payload = &cv.Value
	} else {
		for i, c := range res.Candidates {
			v := schema.ValidateAt(fmt.Sprintf("debts.%d.", i), c)
			saved.Records = append(saved.Records, v.Value)
			saved.Issues = append(saved.Issues, v.Issues...)
		}
	}

	if err := st.Put(ctx, key, model.NewSnapshot(key.Site, payload)); err != nil {
		return nil, err
	}
	saved.Written = true

	if len(saved.Issues) > 0 {
		zap.L().Warn("extract: candidates failed validation, saved unvalidated copy",
			zap.String("key", key.String()),
			zap.String("issues", schema.IssuesString(saved.Issues)),
		)
		side := unvalidatedCandidates{Site: res.Site, Candidates: res.Candidates, Issues: saved.Issues}
		if err := st.PutUnvalidated(ctx, key, side); err != nil {
			return nil, err
		}
	}
	return saved, nil
}
