package detector

import "strings"

// Gmail DOM structures the detector relies on. Editor selectors cover the
// English and Japanese locales plus a structural fallback.
var (
	EditorSelectors = []string{
		`div[aria-label="Message body"]`,
		`div[aria-label="メッセージ本文"]`,
		`div[aria-label="メッセージを入力"]`,
		`div[aria-label="メール本文"]`,
		`div[role="textbox"][g_editable="true"]`,
	}

	ContainerSelectors = []string{
		`div[role="listitem"]`,
		`div.if`,
		`div.adn`,
	}
)

const (
	subjectSelector      = `h2.hP`
	bodySelector         = `div.a3s`
	senderNameSelector   = `span.gD`
	senderEmailSelector  = `span[email]`
	threadBodySelector   = `div[role="listitem"] div.a3s`
	threadSenderSelector = `div[role="listitem"] span.gD`

	emailAttr = "email"
	nameAttr  = "name"
)

// Thread identifiers carried by the subject heading, in preference order.
var threadIDAttrs = []string{"data-legacy-thread-id", "data-thread-perm-id"}

// group joins selectors into one selector list. Querying a list returns
// matches in document order.
func group(selectors []string) string {
	return strings.Join(selectors, ", ")
}
