package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehyunk/mallscraper/internal/models"
)

func TestDetectLoginFormFromPasswordForm(t *testing.T) {
	html := `<html><body>
		<form id="loginForm" action="/member/login_check.php">
			<input type="text" name="member_id">
			<input type="password" name="member_passwd">
			<button type="submit" class="btn_login">로그인</button>
		</form>
	</body></html>`

	sel, err := DetectLoginForm(html)
	require.NoError(t, err)
	assert.Equal(t, "form#loginForm", sel.Container)
	assert.Equal(t, `input[name="member_id"]`, sel.Username)
	assert.Equal(t, `input[name="member_passwd"]`, sel.Password)
	assert.Equal(t, `button[type="submit"]`, sel.Submit)
}

func TestDetectLoginFormContainerByClassThenAction(t *testing.T) {
	byClass := `<html><body>
		<form class="member-login extra">
			<input type="email" name="email">
			<input type="password" name="password">
			<input type="submit" value="로그인">
		</form>
	</body></html>`
	sel, err := DetectLoginForm(byClass)
	require.NoError(t, err)
	assert.Equal(t, "form.member-login", sel.Container)

	byAction := `<html><body>
		<form action="/login.do">
			<input type="text" name="userid">
			<input type="password" name="passwd">
		</form>
	</body></html>`
	sel, err = DetectLoginForm(byAction)
	require.NoError(t, err)
	assert.Equal(t, `form[action="/login.do"]`, sel.Container)
	assert.Equal(t, `input[name="userid"]`, sel.Username)
}

func TestDetectLoginFormFromPasswordAncestor(t *testing.T) {
	// Inputs live in a div, no form element at all.
	html := `<html><body>
		<div class="login_box">
			<input type="text" name="mb_id">
			<input type="password" name="mb_password">
			<a class="btn-login" onclick="doLogin()">로그인</a>
		</div>
	</body></html>`

	sel, err := DetectLoginForm(html)
	require.NoError(t, err)
	assert.Equal(t, "div.login_box", sel.Container)
	assert.Equal(t, `input[name="mb_id"]`, sel.Username)
	assert.Equal(t, `input[name="mb_password"]`, sel.Password)
}

func TestDetectLoginFormKeywordContainer(t *testing.T) {
	// No password input in the initial markup; the member section still
	// carries recognizable inputs.
	html := `<html><body>
		<section id="memberArea">
			<input type="text" name="loginId">
			<input type="password" name="pw">
		</section>
	</body></html>`

	sel, err := DetectLoginForm(html)
	require.NoError(t, err)
	assert.NotEmpty(t, sel.Username)
	assert.NotEmpty(t, sel.Password)
}

func TestDetectLoginFormFallsBackToGuesses(t *testing.T) {
	sel, err := DetectLoginForm(`<html><body><p>로그인 폼이 없는 페이지</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, guessedLoginSelectors(), sel)
}

func TestLoginSelectorsSelectorMap(t *testing.T) {
	sel := LoginSelectors{
		Container: "form#loginForm",
		Username:  `input[name="member_id"]`,
		Password:  `input[name="member_passwd"]`,
		Submit:    `button[type="submit"]`,
	}

	m := sel.SelectorMap()
	assert.Equal(t, sel.Username, m[models.FieldLoginID])
	assert.Equal(t, sel.Password, m[models.FieldLoginPassword])
	assert.Equal(t, sel.Submit, m[models.FieldLoginButton])

	// Empty slots stay out of the map.
	assert.Empty(t, LoginSelectors{Password: `input[type="password"]`}.SelectorMap()[models.FieldLoginID])
	assert.Len(t, LoginSelectors{Password: `input[type="password"]`}.SelectorMap(), 1)
}

func TestDetectLoginFormUsernameNeverMatchesPassword(t *testing.T) {
	// The password input's name matches a high-priority username pattern;
	// the exclusion list keeps it off the username slot.
	html := `<html><body>
		<form>
			<input type="password" name="user_id">
			<input type="text" name="username">
		</form>
	</body></html>`

	sel, err := DetectLoginForm(html)
	require.NoError(t, err)
	assert.Equal(t, `input[name="username"]`, sel.Username)
}
