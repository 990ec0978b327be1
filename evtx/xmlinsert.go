package evtx

import (
	"regexp"
	"strconv"
)

// placeholderPattern matches `[(Normal|Conditional) Substitution(index=N,
// type=T)]` tokens, capturing the index so each substitution can be spliced
// into its own slot in a single pass.
var placeholderPattern = regexp.MustCompile(`\[(?:Normal|Conditional) Substitution\(index=(\d+), type=\d+\)\]`)

// backreferencePattern finds `\<digit>` sequences in a value about to be
// spliced into a regexp-replacement target, so they can be neutered.
var backreferencePattern = regexp.MustCompile(`\\([0-9])`)

// InsertSubstitutions renders a complete record's XML by substituting each
// value into its placeholder slot.
func InsertSubstitutions(templateXML string, subs []Substitution) string {
	return placeholderPattern.ReplaceAllStringFunc(templateXML, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		index, err := strconv.Atoi(groups[1])
		if err != nil || index < 0 || index >= len(subs) {
			return match
		}
		return neutralizeBackreferences(subs[index].Value.Rendered)
	})
}

// neutralizeBackreferences escapes any `\<digit>` in value so that it can't
// be mistaken for a regexp replacement backreference.
func neutralizeBackreferences(value string) string {
	return backreferencePattern.ReplaceAllString(value, `\\$1`)
}
