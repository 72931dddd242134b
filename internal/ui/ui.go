package ui

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/bz888/blab-feedback/internal/chat"
	"github.com/bz888/blab-feedback/internal/logger"
	"github.com/bz888/blab-feedback/pkg/protocol"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// UI is the terminal surface of the client. It implements chat.View; its
// methods must run on the tview event loop.
type UI struct {
	app *tview.Application

	conversation *tview.TextView
	input        *tview.InputField
	send         *tview.Button
	feedback     *tview.Flex
	stars        []*tview.Button
	debugConsole *tview.TextView

	chatColumn *tview.Flex
	mainFlex   *tview.Flex

	feedbackShown bool
	debugShown    bool
	drawPending   atomic.Bool

	session     *chat.Session
	localLogger *logger.Logger
}

func New(dev bool) *UI {
	u := &UI{
		app:         tview.NewApplication(),
		debugShown:  dev,
		localLogger: logger.NewLogger("views"),
	}
	u.app.EnablePaste(true)
	u.app.EnableMouse(true)

	u.conversation = initChatViewer()
	u.input = u.initChatInput()
	u.send = u.initSendButton()
	u.feedback = u.initFeedbackBar()
	u.debugConsole = u.initDebugConsole()

	u.chatColumn = tview.NewFlex().SetDirection(tview.FlexRow)
	u.mainFlex = tview.NewFlex()
	u.arrange()

	return u
}

func initChatViewer() *tview.TextView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	textView.SetTitle("Conversation").SetBorder(true)
	textView.SetScrollable(true)
	textView.ScrollToEnd()
	return textView
}

func (u *UI) initChatInput() *tview.InputField {
	input := tview.NewInputField().SetLabel("> ")
	input.SetTitle("Question").SetBorder(true)
	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			u.submitQuery()
		case tcell.KeyTab:
			if u.feedbackShown {
				u.app.SetFocus(u.stars[0])
			} else {
				u.app.SetFocus(u.send)
			}
		case tcell.KeyEscape:
			if u.conversation.GetText(false) != "" {
				u.app.SetFocus(u.conversation)
			}
		}
	})
	return input
}

func (u *UI) initSendButton() *tview.Button {
	send := tview.NewButton("Send").SetSelectedFunc(u.submitQuery)
	send.SetBorder(true)
	send.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyTab, tcell.KeyBacktab, tcell.KeyEscape:
			u.app.SetFocus(u.input)
			return nil
		}
		return event
	})
	return send
}

func (u *UI) initFeedbackBar() *tview.Flex {
	bar := tview.NewFlex()
	bar.SetTitle("Rate the answer").SetBorder(true)

	for rating := protocol.MinRating; rating <= protocol.MaxRating; rating++ {
		rating := rating
		star := tview.NewButton(fmt.Sprintf("%d★", rating)).
			SetSelectedFunc(func() { u.rate(rating) })
		star.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			return u.handleStarKey(rating, event)
		})
		u.stars = append(u.stars, star)
		bar.AddItem(star, 0, 1, false)
	}
	return bar
}

func (u *UI) initDebugConsole() *tview.TextView {
	console := tview.NewTextView().
		SetChangedFunc(u.scheduleDraw).
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	console.SetTitle("Debugger").SetBorder(true)
	console.ScrollToEnd()
	return console
}

// scheduleDraw redraws the screen after the debug console changed. Log lines
// arrive from the event loop as well as the connection goroutine, and
// app.Draw waits for the loop, so the draw is queued from its own goroutine
// with at most one outstanding at a time.
func (u *UI) scheduleDraw() {
	if !u.drawPending.CompareAndSwap(false, true) {
		return
	}
	go u.app.QueueUpdateDraw(func() {
		u.drawPending.Store(false)
	})
}

// arrange rebuilds the layout from the current visibility flags.
func (u *UI) arrange() {
	inputRow := tview.NewFlex().
		AddItem(u.input, 0, 1, true).
		AddItem(u.send, 10, 0, false)

	u.chatColumn.Clear()
	u.chatColumn.AddItem(u.conversation, 0, 1, false)
	if u.feedbackShown {
		u.chatColumn.AddItem(u.feedback, 3, 0, false)
	}
	u.chatColumn.AddItem(inputRow, 3, 0, true)

	u.mainFlex.Clear()
	u.mainFlex.AddItem(u.chatColumn, 0, 2, true)
	if u.debugShown {
		u.mainFlex.AddItem(u.debugConsole, 0, 1, false)
	}
}

// DebugConsole is where dev-mode log lines are mirrored.
func (u *UI) DebugConsole() *tview.TextView {
	return u.debugConsole
}

func (u *UI) Bind(session *chat.Session) {
	u.session = session
}

// Dispatch runs f on the UI event loop and redraws.
func (u *UI) Dispatch(f func()) {
	u.app.QueueUpdateDraw(f)
}

func (u *UI) Run() error {
	return u.app.SetRoot(u.mainFlex, true).SetFocus(u.input).Run()
}

func (u *UI) Stop() {
	u.app.Stop()
}

func (u *UI) ClearInput() {
	u.input.SetText("")
}

func (u *UI) AppendQuery(text string) {
	fmt.Fprintln(u.conversation, "[red::]You:[-]")
	fmt.Fprintf(u.conversation, "%s\n\n", tview.Escape(text))
	u.conversation.ScrollToEnd()
}

func (u *UI) AppendResponse(text string) {
	fmt.Fprintln(u.conversation, "[green::]Bot:[-]")
	fmt.Fprintf(u.conversation, "%s\n\n", tview.Escape(text))
	u.conversation.ScrollToEnd()
}

func (u *UI) ShowFeedback() {
	if u.feedbackShown {
		return
	}
	u.feedbackShown = true
	u.arrange()
}

func (u *UI) HideFeedback() {
	if !u.feedbackShown {
		return
	}
	refocus := u.feedback.HasFocus()
	u.feedbackShown = false
	u.arrange()
	if refocus {
		u.app.SetFocus(u.input)
	}
}

func (u *UI) FeedbackVisible() bool {
	return u.feedbackShown
}

func (u *UI) Notice(text string) {
	fmt.Fprintf(u.conversation, "[yellow::]%s[-]\n\n", tview.Escape(text))
	u.conversation.ScrollToEnd()
}

// submitQuery is the single handler behind Enter and the Send button.
func (u *UI) submitQuery() {
	content := u.input.GetText()

	switch strings.TrimSpace(content) {
	case "/help":
		u.ClearInput()
		u.listHelp()
		return
	case "/bye":
		u.quitApp()
		return
	case "/debug":
		u.ClearInput()
		u.toggleDebugConsole()
		return
	}

	if u.session == nil {
		return
	}
	if err := u.session.SendQuery(content); err != nil && !errors.Is(err, chat.ErrEmptyQuery) {
		u.localLogger.Warn("query not sent: ", err)
	}
}

func (u *UI) rate(rating int) {
	if u.session == nil {
		return
	}
	if err := u.session.SubmitFeedback(rating); err != nil {
		u.localLogger.Warn("feedback not sent: ", err)
		return
	}
	u.app.SetFocus(u.input)
}

func (u *UI) handleStarKey(rating int, event *tcell.EventKey) *tcell.EventKey {
	idx := rating - protocol.MinRating
	switch event.Key() {
	case tcell.KeyRune:
		if r := event.Rune(); r >= '0'+protocol.MinRating && r <= '0'+protocol.MaxRating {
			u.rate(int(r - '0'))
			return nil
		}
	case tcell.KeyRight, tcell.KeyTab:
		u.app.SetFocus(u.stars[(idx+1)%len(u.stars)])
		return nil
	case tcell.KeyLeft, tcell.KeyBacktab:
		u.app.SetFocus(u.stars[(idx+len(u.stars)-1)%len(u.stars)])
		return nil
	case tcell.KeyEscape:
		u.app.SetFocus(u.input)
		return nil
	}
	return event
}

func (u *UI) toggleDebugConsole() {
	u.debugShown = !u.debugShown
	u.arrange()
	if u.debugShown {
		fmt.Fprintf(u.conversation, "\nDebug console enabled\n\n")
	} else {
		fmt.Fprintf(u.conversation, "\nDebug console disabled\n\n")
	}
}

func (u *UI) quitApp() {
	fmt.Fprintf(u.conversation, "Bye bye\n")
	u.localLogger.Info("quit requested")
	u.app.Stop()
}

func (u *UI) listHelp() {
	fmt.Fprintf(u.conversation, "[green::]Bot:[-]\n")
	fmt.Fprintf(u.conversation, "Here are some commands you can use:\n")
	fmt.Fprintf(u.conversation, "- /help: Display this help message\n")
	fmt.Fprintf(u.conversation, "- /bye: Exit the application\n")
	fmt.Fprintf(u.conversation, "- /debug: Toggle the debug console\n")
	fmt.Fprintf(u.conversation, "- 1-5 on a star, or a click: rate the last answer\n\n")
}
