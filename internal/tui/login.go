package tui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/wellness/internal/gateway"
)

const (
	modeLogin    = "login"
	modeRegister = "register"
)

// loginModel is the credential form shown whenever no session exists.
type loginModel struct {
	auth   Auth
	width  int
	height int

	form *huh.Form
	busy bool
	err  string

	// Form values as pointers (survive value copies)
	mode     *string
	email    *string
	password *string
}

func newLoginModel(a Auth) loginModel {
	mode, email, password := modeLogin, "", ""
	return loginModel{
		auth:     a,
		mode:     &mode,
		email:    &email,
		password: &password,
	}
}

func (l *loginModel) setSize(w, h int) {
	l.width = w
	l.height = h
}

func (l loginModel) show() (loginModel, tea.Cmd) {
	*l.password = ""
	l.busy = false

	l.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Account").
				Options(
					huh.NewOption("Log in", modeLogin),
					huh.NewOption("Create account", modeRegister),
				).Value(l.mode),
			huh.NewInput().Title("Email").Value(l.email).Validate(validateEmail),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(l.password).Validate(validatePassword),
		).Title("Wellness Tracker"),
	).WithShowHelp(true).WithShowErrors(true)

	return l, l.form.Init()
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(s, "@") {
		return errors.New("enter a valid email")
	}
	return nil
}

func validatePassword(s string) error {
	if s == "" {
		return errors.New("password is required")
	}
	return nil
}

func (l loginModel) update(msg tea.Msg) (loginModel, tea.Cmd) {
	if msg, ok := msg.(authDoneMsg); ok {
		l.busy = false
		if msg.err != nil {
			def := "Login failed"
			if *l.mode == modeRegister {
				def = "Registration failed"
			}
			l.err = gateway.UserMessage(msg.err, def)
			return l.show()
		}
		l.err = ""
		return l, nil
	}

	if l.form == nil || l.busy {
		return l, nil
	}

	form, cmd := l.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		l.form = f
	}

	if l.form.State == huh.StateCompleted {
		l.busy = true
		return l, l.submit()
	}
	return l, cmd
}

func (l loginModel) submit() tea.Cmd {
	creds := gateway.Credentials{Email: strings.TrimSpace(*l.email), Password: *l.password}
	register := *l.mode == modeRegister
	a := l.auth
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		var (
			u   gateway.User
			err error
		)
		if register {
			u, err = a.Register(ctx, creds)
		} else {
			u, err = a.Login(ctx, creds)
		}
		return authDoneMsg{user: u, err: err}
	}
}

func (l loginModel) view() string {
	w := l.width - 4
	var rows []string
	if l.err != "" {
		rows = append(rows, bannerStyle.Render(l.err), "")
	}
	if l.busy {
		rows = append(rows, mutedStyle.Render("Signing in..."))
	} else if l.form != nil {
		rows = append(rows, l.form.View())
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
