package drafts

import (
	"strings"

	"survey-drafts/internal/models"
)

// Collect captures every identifiable control. Checkbox-like controls give
// their checked state, everything else its raw string value.
func Collect(form FieldProvider) models.Snapshot {
	snap := make(models.Snapshot)
	for _, c := range form.Enumerate() {
		if c.ID == "" {
			continue
		}
		if c.Kind == ControlCheckbox {
			snap[c.ID] = models.BoolValue(c.Value.Bool)
			continue
		}
		snap[c.ID] = models.StringValue(c.Value.Str)
	}
	return snap
}

// ApplyResult reports which snapshot entries found a control
type ApplyResult struct {
	Applied []string
	Skipped []string
}

// Apply writes a snapshot back into the form. Entries without a matching
// control are skipped; the form schema may have changed since the save.
func Apply(form FieldProvider, snap models.Snapshot) ApplyResult {
	var res ApplyResult
	for id, v := range snap {
		c, ok := form.Lookup(id)
		if !ok {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		if c.Kind == ControlCheckbox {
			v = models.BoolValue(truthy(v))
		} else if v.IsBool {
			v = models.StringValue(v.String())
		}
		if form.SetValue(id, v) {
			res.Applied = append(res.Applied, id)
		} else {
			res.Skipped = append(res.Skipped, id)
		}
	}
	return res
}

// truthy maps a stored value onto a checked state
func truthy(v models.FieldValue) bool {
	if v.IsBool {
		return v.Bool
	}
	switch strings.ToLower(strings.TrimSpace(v.Str)) {
	case "", "false", "0", "off", "no", "nao", "não":
		return false
	}
	return true
}
