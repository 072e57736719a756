package drafts

import (
	"strconv"
	"time"

	"github.com/segmentio/ksuid"

	"survey-drafts/internal/models"
)

// DraftIDField is the hidden control that mirrors the bound draft id
const DraftIDField = "draft_id"

// IDGenerator produces a fresh draft id for the given instant
type IDGenerator func(now time.Time) string

// NewDraftID is time-ordered like the old "draft-<millis>" ids, but the
// random KSUID payload keeps two sessions in the same millisecond apart.
func NewDraftID(now time.Time) string {
	id, err := ksuid.NewRandomWithTime(now)
	if err != nil {
		return "draft-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + ksuid.New().String()
	}
	return "draft-" + id.String()
}

// IdentityResolver decides which draft id a save writes to
type IdentityResolver struct {
	generate IDGenerator
	now      func() time.Time
}

func NewIdentityResolver(gen IDGenerator, now func() time.Time) *IdentityResolver {
	if gen == nil {
		gen = NewDraftID
	}
	if now == nil {
		now = time.Now
	}
	return &IdentityResolver{generate: gen, now: now}
}

/*
Resolve picks the id in priority order:
 1. the hidden draft_id control of the form (backfills the session)
 2. the id already bound to the session (backfills the hidden control)
 3. a freshly generated id, written to both

After the first save every later save of the same form hits the same id, so
a form never spawns a second draft.
*/
func (r *IdentityResolver) Resolve(sess *SessionContext, form FieldProvider) string {
	if form != nil {
		if c, ok := form.Lookup(DraftIDField); ok && c.Value.Str != "" {
			if sess.DraftID() != c.Value.Str {
				sess.SetDraftID(c.Value.Str)
			}
			return c.Value.Str
		}
	}

	id := sess.DraftID()
	if id == "" {
		id = r.generate(r.now())
		sess.SetDraftID(id)
	}
	if form != nil {
		form.SetValue(DraftIDField, models.StringValue(id))
	}
	return id
}

// NewID generates an id without binding anything
func (r *IdentityResolver) NewID() string {
	return r.generate(r.now())
}
