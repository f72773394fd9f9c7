package detector

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jaehyunk/mallscraper/internal/models"
)

// ErrManualLoginRequired signals that automated login failed or could not be
// attempted and an operator must complete it in the live browser window.
var ErrManualLoginRequired = errors.New("manual login required")

// LoginSelectors locate the pieces of a login form.
type LoginSelectors struct {
	Container string `json:"container"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Submit    string `json:"submit"`
}

// SelectorMap expresses the login locators under the shared field keys so they
// can be persisted alongside the product selectors.
func (s LoginSelectors) SelectorMap() models.SelectorMap {
	m := models.SelectorMap{}
	if s.Username != "" {
		m[models.FieldLoginID] = s.Username
	}
	if s.Password != "" {
		m[models.FieldLoginPassword] = s.Password
	}
	if s.Submit != "" {
		m[models.FieldLoginButton] = s.Submit
	}
	return m
}

// usernameSelectors in priority order, tried within the detected container
// first and against the whole page as a fallback.
var usernameSelectors = []string{
	`input[name="member_id"]`, `input[name="userid"]`, `input[name="user_id"]`,
	`input[name="id"]`, `input[name="mb_id"]`, `input[name="loginId"]`,
	`input[name="username"]`, `input[name="email"]`,
	`input[type="email"]`,
	`input[id*="id"]`, `input[id*="user"]`, `input[id*="email"]`,
	`input[type="text"]`,
}

var passwordSelectors = []string{
	`input[name="member_passwd"]`, `input[name="passwd"]`,
	`input[name="password"]`, `input[name="mb_password"]`,
	`input[name="pw"]`, `input[name="pwd"]`,
	`input[type="password"]`,
}

var submitSelectors = []string{
	`button[type="submit"]`, `input[type="submit"]`, `input[type="image"]`,
	`a[onclick*="login"]`, `.login-button`, `.btn-login`, `.btn_login`,
	`button[class*="login"]`, `a[class*="login"]`, "button",
}

// loginContainerKeywords identify login areas when no password form exists in
// the initial markup, e.g. script-rendered forms.
var loginContainerKeywords = []string{"login", "signin", "member", "로그인", "회원"}

// guessedLoginSelectors are the last-resort fixed selectors used when the page
// markup gives nothing to anchor on. The caller still gets something to try
// before falling back to manual login.
func guessedLoginSelectors() LoginSelectors {
	return LoginSelectors{
		Container: "form",
		Username:  `input[type="text"], input[type="email"]`,
		Password:  `input[type="password"]`,
		Submit:    `button[type="submit"], input[type="submit"]`,
	}
}

// DetectLoginForm locates the login form on a page. Precedence: a form owning
// a password input, then any container reachable upward from a password input
// that also holds a text input, then keyword-named containers, then fixed
// guesses. An empty page yields the guesses, never an error; login failure is
// decided later by the navigation result.
func DetectLoginForm(html string) (LoginSelectors, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return LoginSelectors{}, err
	}

	if sel, ok := loginFromPasswordForm(doc); ok {
		return sel, nil
	}
	if sel, ok := loginFromPasswordAncestor(doc); ok {
		return sel, nil
	}
	if sel, ok := loginFromKeywordContainer(doc); ok {
		return sel, nil
	}
	return guessedLoginSelectors(), nil
}

// loginFromPasswordForm finds the first form that owns a password input and
// derives the container selector from the form itself.
func loginFromPasswordForm(doc *goquery.Document) (LoginSelectors, bool) {
	var result LoginSelectors
	found := false

	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		if form.Find(`input[type="password"]`).Length() == 0 {
			return true
		}
		result = LoginSelectors{
			Container: formSelector(form),
			Username:  pickWithin(form, usernameSelectors, passwordSelectors),
			Password:  pickWithin(form, passwordSelectors, nil),
			Submit:    pickWithin(form, submitSelectors, nil),
		}
		found = true
		return false
	})

	if !found || result.Password == "" {
		return LoginSelectors{}, false
	}
	return result, true
}

// formSelector identifies a form by id, then class, then action, then tag.
func formSelector(form *goquery.Selection) string {
	if id, ok := form.Attr("id"); ok && id != "" {
		return "form#" + id
	}
	if class, ok := form.Attr("class"); ok && strings.TrimSpace(class) != "" {
		return "form." + strings.Fields(class)[0]
	}
	if action, ok := form.Attr("action"); ok && action != "" {
		return `form[action="` + action + `"]`
	}
	return "form"
}

// loginFromPasswordAncestor walks up from a password input outside any form
// until it reaches a container that also holds a text or email input.
func loginFromPasswordAncestor(doc *goquery.Document) (LoginSelectors, bool) {
	var result LoginSelectors
	found := false

	doc.Find(`input[type="password"]`).EachWithBreak(func(_ int, pw *goquery.Selection) bool {
		container := pw.Parent()
		for depth := 0; depth < 6 && container.Length() > 0; depth++ {
			if container.Find(`input[type="text"], input[type="email"]`).Length() > 0 {
				sig := ElementSignature(container)
				if sig == "" || sig == "body" || sig == "html" {
					break
				}
				result = LoginSelectors{
					Container: sig,
					Username:  pickWithin(container, usernameSelectors, passwordSelectors),
					Password:  pickWithin(container, passwordSelectors, nil),
					Submit:    pickWithin(container, submitSelectors, nil),
				}
				found = true
				return false
			}
			container = container.Parent()
		}
		return true
	})

	if !found || result.Username == "" || result.Password == "" {
		return LoginSelectors{}, false
	}
	return result, true
}

// loginFromKeywordContainer scans containers whose id or class names a login
// keyword, covering forms injected after load where the inputs are present
// but unattached to a form element.
func loginFromKeywordContainer(doc *goquery.Document) (LoginSelectors, bool) {
	var result LoginSelectors
	found := false

	doc.Find("div, section, fieldset").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		id, _ := node.Attr("id")
		class, _ := node.Attr("class")
		marker := strings.ToLower(id + " " + class)
		matched := false
		for _, kw := range loginContainerKeywords {
			if strings.Contains(marker, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return true
		}
		username := pickWithin(node, usernameSelectors, passwordSelectors)
		password := pickWithin(node, passwordSelectors, nil)
		if username == "" || password == "" {
			return true
		}
		result = LoginSelectors{
			Container: ElementSignature(node),
			Username:  username,
			Password:  password,
			Submit:    pickWithin(node, submitSelectors, nil),
		}
		found = true
		return false
	})

	return result, found
}

// pickWithin returns the first selector from the priority list that matches
// inside scope. Selectors that also match an exclusion list entry on the same
// node are skipped, so a broad input[type="text"] cannot claim the password
// field.
func pickWithin(scope *goquery.Selection, priority, exclude []string) string {
	for _, selector := range priority {
		node := scope.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if matchesAny(node, exclude) {
			continue
		}
		return selector
	}
	return ""
}

func matchesAny(node *goquery.Selection, selectors []string) bool {
	for _, sel := range selectors {
		if node.Is(sel) {
			return true
		}
	}
	return false
}
