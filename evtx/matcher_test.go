package evtx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sub(typ byte, raw any) Substitution {
	return Substitution{Type: typ, Value: Value{Type: typ, Raw: raw}}
}

func TestMatchTemplateExactTypesMatch(t *testing.T) {
	tmpl := NewTemplate(4624, "<Event/>", []Placeholder{
		{Index: 0, Type: 8, Mode: ModeNormal},
		{Index: 1, Type: 1, Mode: ModeNormal},
	})
	subs := []Substitution{sub(8, uint32(1)), sub(1, "a")}
	assert.True(t, MatchTemplate(tmpl, subs))
}

func TestMatchTemplateFailsOnTypeMismatch(t *testing.T) {
	tmpl := NewTemplate(4624, "<Event/>", []Placeholder{{Index: 0, Type: 8, Mode: ModeNormal}})
	subs := []Substitution{sub(1, "a")}
	assert.False(t, MatchTemplate(tmpl, subs))
}

func TestMatchTemplateConditionalAllowsNullType(t *testing.T) {
	tmpl := NewTemplate(4624, "<Event/>", []Placeholder{{Index: 0, Type: 8, Mode: ModeConditional}})
	subs := []Substitution{sub(0, nil)}
	assert.True(t, MatchTemplate(tmpl, subs))
}

func TestMatchTemplateSizeTypeOverrideAcceptsHex64(t *testing.T) {
	tmpl := NewTemplate(4624, "<Event/>", []Placeholder{{Index: 0, Type: 0x10, Mode: ModeNormal}})
	subs := []Substitution{sub(0x15, uint64(1))}
	assert.True(t, MatchTemplate(tmpl, subs))
}

func TestMatchTemplateFailsWhenIndexOutOfRange(t *testing.T) {
	tmpl := NewTemplate(4624, "<Event/>", []Placeholder{{Index: 5, Type: 8, Mode: ModeNormal}})
	subs := []Substitution{sub(8, uint32(1))}
	assert.False(t, MatchTemplate(tmpl, subs))
}

func TestMatchInStoreZeroMatches(t *testing.T) {
	store := NewTemplateStore()
	store.Insert(NewTemplate(4624, "<Event/>", []Placeholder{{Index: 0, Type: 8, Mode: ModeNormal}}))

	result := MatchInStore(store, 4624, []Substitution{sub(1, "a")})
	assert.False(t, result.Matched)
	assert.False(t, result.Ambiguous)
}

func TestMatchInStoreAmbiguousWhenMultipleTemplatesMatch(t *testing.T) {
	store := NewTemplateStore()
	placeholders := []Placeholder{{Index: 0, Type: 8, Mode: ModeNormal}}
	store.Insert(NewTemplate(4624, "<EventA/>", placeholders))
	store.Insert(NewTemplate(4624, "<EventB/>", placeholders))

	result := MatchInStore(store, 4624, []Substitution{sub(8, uint32(1))})
	assert.False(t, result.Matched)
	assert.True(t, result.Ambiguous)
}

func TestMatchInStoreExactlyOneMatch(t *testing.T) {
	store := NewTemplateStore()
	store.Insert(NewTemplate(4624, "<EventA/>", []Placeholder{{Index: 0, Type: 8, Mode: ModeNormal}}))
	store.Insert(NewTemplate(4624, "<EventB/>", []Placeholder{{Index: 0, Type: 1, Mode: ModeNormal}}))

	result := MatchInStore(store, 4624, []Substitution{sub(8, uint32(1))})
	assert.True(t, result.Matched)
	assert.Equal(t, "<EventA/>", result.Template.XML)
}
