package dialog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakePresenter struct {
	errors   []string
	confirms []string
	answer   bool
	err      error
}

func (f *fakePresenter) Error(text string) error {
	f.errors = append(f.errors, text)
	return nil
}

func (f *fakePresenter) Confirm(text string) (bool, error) {
	f.confirms = append(f.confirms, text)
	return f.answer, f.err
}

func install(t *testing.T, p *fakePresenter) *[]string {
	t.Helper()
	t.Cleanup(SetPresenter(p))
	var opened []string
	t.Cleanup(SetURLOpener(func(url string) error {
		opened = append(opened, url)
		return nil
	}))
	return &opened
}

func TestShowError(t *testing.T) {
	p := &fakePresenter{}
	install(t, p)
	ShowError("boom")
	require.Equal(t, []string{"boom"}, p.errors)
}

func TestWebviewDialogsOpenDocsOnOK(t *testing.T) {
	p := &fakePresenter{answer: true}
	opened := install(t, p)

	WebviewMissing()
	WebviewFaulty()
	require.Len(t, p.confirms, 2)
	require.Equal(t, []string{WebviewMissingURL, WebviewFaultyURL}, *opened)
}

func TestWebviewDialogCancel(t *testing.T) {
	p := &fakePresenter{answer: false}
	opened := install(t, p)
	WebviewMissing()
	require.Empty(t, *opened)
}

func TestWebviewDialogFailureDoesNotOpen(t *testing.T) {
	p := &fakePresenter{answer: true, err: errors.New("no display")}
	opened := install(t, p)
	WebviewFaulty()
	require.Empty(t, *opened)
}

func TestMissingJavaMentionsMinimum(t *testing.T) {
	p := &fakePresenter{}
	install(t, p)
	MissingJava(17)
	require.Len(t, p.errors, 1)
	require.Contains(t, p.errors[0], "Java 17 or higher")
}

func TestRecoverShowsDialogAndRepanics(t *testing.T) {
	p := &fakePresenter{}
	install(t, p)

	require.PanicsWithValue(t, "startup exploded", func() {
		defer Recover()
		panic("startup exploded")
	})
	require.Equal(t, []string{"panicked: startup exploded"}, p.errors)
}

func TestRecoverWithoutPanic(t *testing.T) {
	p := &fakePresenter{}
	install(t, p)
	func() {
		defer Recover()
	}()
	require.Empty(t, p.errors)
}
