package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/chatdesk/internal"
	"github.com/iksnae/chatdesk/internal/export"
	"github.com/spf13/cobra"
)

var chatModel string

var (
	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Italic(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)
)

const chatHelp = `Type a message and press Enter to send it to the active chat.
With no chat open, sending starts a new one.

Commands:
  /new [name]            Start a chat and open it
  /list                  List chats in sidebar order
  /search <term>         List chats whose name contains term
  /open <id|/chat/id>    Open a chat by id or deep link
  /home                  Close the active chat
  /rename <name>         Rename the active chat
  /delete [id]           Delete a chat (default: the active one)
  /move <from> <to>      Move a chat in the list (positions start at 1)
  /model [id]            Show models or pick the one replies come from
  /export <format> [dir] Export the active chat (md, json, yaml, jsonl)
  /help                  Show this help
  /quit                  Leave`

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [chat-id]",
	Short: "Chat in the terminal",
	Long: `Start an interactive chat backed by an in-process session store.

Messages go to the active chat; replies are printed as they arrive, in the
order the messages were sent. Pass a chat id or a /chat/{id} deep link to
start there. Type /help for the list of commands.

Input can be piped: at end of input chatdesk waits for pending replies
before exiting.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		start := ""
		if len(args) == 1 {
			start = args[0]
		}
		c := *cfg
		if chatModel != "" {
			c.DefaultModel = chatModel
		}
		return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), &c, start)
	},
}

// runChat runs the REPL until in is exhausted, /quit is entered or ctx is done
func runChat(ctx context.Context, in io.Reader, out io.Writer, c *internal.Config, start string) error {
	cs := newChatSession(c, out)
	defer cs.close()

	if !cs.validModel(c.DefaultModel) {
		return &internal.ValidationError{Field: "model", Reason: fmt.Sprintf("unknown model %q", c.DefaultModel)}
	}

	cs.printf("%s\n", sectionStyle.Render("💬 chatdesk"))
	cs.printf("%s\n\n", idStyle.Render("Type /help for commands. Replies come from "+c.DefaultModel+"."))
	if start != "" {
		cs.open(start)
	}
	return cs.run(ctx, in)
}

type chatSession struct {
	store      *internal.Store
	router     *internal.Router
	dispatcher *internal.Dispatcher
	cfg        *internal.Config
	model      string
	prompt     bool

	mu      sync.Mutex
	out     io.Writer
	printed map[string]int

	cancels []func()
}

func newChatSession(c *internal.Config, out io.Writer) *chatSession {
	store, dispatcher := newEngine(c)
	cs := &chatSession{
		store:      store,
		router:     internal.NewRouter(store),
		dispatcher: dispatcher,
		cfg:        c,
		model:      c.DefaultModel,
		prompt:     internal.IsTerminal(out),
		out:        out,
		printed:    make(map[string]int),
	}
	cs.cancels = append(cs.cancels,
		store.Subscribe(cs.onEvent),
		cs.router.OnChange(func(path string) {
			cs.printf("%s\n", pathStyle.Render("→ "+path))
		}),
	)
	return cs
}

func (cs *chatSession) close() {
	for _, cancel := range cs.cancels {
		cancel()
	}
	cs.router.Close()
	cs.dispatcher.Close()
}

func (cs *chatSession) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		cs.showPrompt()
		select {
		case <-ctx.Done():
			cs.printf("\n")
			return nil
		case line, ok := <-lines:
			if !ok {
				if n := cs.dispatcher.Pending(); n > 0 {
					internal.LogDebug("Waiting for %d pending repl(ies)", n)
				}
				cs.dispatcher.Wait()
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if quit := cs.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle runs one input line and reports whether the user asked to leave
func (cs *chatSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		cs.send(ctx, line)
		return false
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "exit", "q":
		return true
	case "help":
		cs.printf("%s\n", chatHelp)
	case "new":
		id := cs.store.Create(arg)
		cs.report(cs.store.Select(id))
	case "list":
		cs.list(cs.store.Sessions())
	case "search":
		if arg == "" {
			cs.warn("usage: /search <term>")
			break
		}
		cs.list(cs.store.Search(arg))
	case "open":
		if arg == "" {
			cs.warn("usage: /open <id|/chat/id>")
			break
		}
		cs.open(arg)
	case "home":
		_, err := cs.router.Navigate("/")
		cs.report(err)
	case "rename":
		cs.rename(arg)
	case "delete":
		cs.remove(arg)
	case "move":
		cs.move(arg)
	case "model":
		cs.selectModel(arg)
	case "export":
		cs.export(arg)
	default:
		cs.warn(fmt.Sprintf("unknown command /%s (try /help)", name))
	}
	return false
}

func (cs *chatSession) send(ctx context.Context, text string) {
	receipt, err := cs.dispatcher.Send(ctx, text, cs.model, "")
	if err != nil {
		cs.report(err)
		return
	}
	if receipt.Created {
		cs.info(fmt.Sprintf("Started a new chat %s", receipt.SessionID))
	}
}

func (cs *chatSession) open(arg string) {
	path := arg
	if !strings.HasPrefix(arg, "/") {
		path = internal.PathFor(arg)
	}
	resolved, err := cs.router.Navigate(path)
	if err != nil {
		cs.report(err)
		return
	}
	if resolved != path && resolved != "/" {
		cs.warn(fmt.Sprintf("%s not found, opened %s instead", path, resolved))
	}
	cs.showActive()
}

func (cs *chatSession) rename(name string) {
	active := cs.store.Active()
	if active == "" {
		cs.warn("no active chat to rename")
		return
	}
	if err := cs.store.Rename(active, name); err != nil {
		cs.report(err)
		return
	}
	cs.success("Renamed")
}

func (cs *chatSession) remove(id string) {
	if id == "" {
		id = cs.store.Active()
	}
	if id == "" {
		cs.warn("no active chat to delete")
		return
	}
	if !cs.store.Delete(id) {
		cs.warn(fmt.Sprintf("chat %s not found", id))
		return
	}
	cs.success(fmt.Sprintf("Deleted %s", id))
}

func (cs *chatSession) move(arg string) {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		cs.warn("usage: /move <from> <to>")
		return
	}
	from, err1 := strconv.Atoi(fields[0])
	to, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		cs.warn("positions must be numbers")
		return
	}
	if err := cs.store.Reorder(from-1, to-1); err != nil {
		cs.report(err)
		return
	}
	cs.list(cs.store.Sessions())
}

func (cs *chatSession) selectModel(id string) {
	if id == "" {
		for _, m := range cs.cfg.Models {
			marker := "  "
			if m.ID == cs.model {
				marker = successStyle.Render("● ")
			}
			cs.printf("%s%s %s\n", marker, m.ID, idStyle.Render(m.Label))
		}
		return
	}
	if !cs.validModel(id) {
		cs.warn(fmt.Sprintf("unknown model %q (see /model)", id))
		return
	}
	cs.model = id
	cs.success("Replies now come from " + id)
}

func (cs *chatSession) validModel(id string) bool {
	for _, m := range cs.cfg.Models {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (cs *chatSession) export(arg string) {
	fields := strings.Fields(arg)
	if len(fields) == 0 || len(fields) > 2 {
		cs.warn("usage: /export <format> [dir]")
		return
	}
	session, ok := cs.store.Session(cs.store.Active())
	if !ok {
		cs.warn("no active chat to export")
		return
	}
	exporter, err := export.NewExporter(fields[0])
	if err != nil {
		cs.report(err)
		return
	}
	dir := cs.cfg.ExportDir
	if len(fields) == 2 {
		dir = fields[1]
	}
	path, err := internal.NewExportManager(dir).Export(session, exporter)
	if err != nil {
		cs.report(err)
		return
	}
	cs.success("Exported to " + path)
}

func (cs *chatSession) showActive() {
	session, ok := cs.store.Session(cs.store.Active())
	if !ok {
		return
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	displaySessionHeader(cs.out, session)
	for i, msg := range session.Messages {
		displayMessage(cs.out, i+1, msg, len(session.Messages))
	}
	if len(session.Messages) > cs.printed[session.ID] {
		cs.printed[session.ID] = len(session.Messages)
	}
}

func (cs *chatSession) list(sessions []internal.SessionSummary) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	displaySessions(cs.out, sessions)
}

func (cs *chatSession) onEvent(ev internal.Event) {
	switch ev.Kind {
	case internal.EventAppended:
		cs.flush(ev.SessionID, ev.Active)
	case internal.EventDeleted:
		cs.mu.Lock()
		delete(cs.printed, ev.SessionID)
		cs.mu.Unlock()
	}
}

// flush prints assistant messages of id that have not been printed yet
func (cs *chatSession) flush(id, active string) {
	msgs := cs.store.Messages(id)
	name := ""
	if id != active {
		if s, ok := cs.store.Session(id); ok {
			name = s.Name
		}
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	start := cs.printed[id]
	if start >= len(msgs) {
		return
	}
	for i, msg := range msgs[start:] {
		if msg.Role != internal.RoleAssistant {
			continue
		}
		if name != "" {
			fmt.Fprintln(cs.out, idStyle.Render("reply in "+name+":"))
		}
		displayMessage(cs.out, start+i+1, msg, len(msgs))
	}
	cs.printed[id] = len(msgs)
}

func (cs *chatSession) report(err error) {
	if err == nil {
		return
	}
	if internal.IsValidation(err) || internal.IsNotFound(err) {
		cs.warn(err.Error())
		return
	}
	cs.printf("%s %v\n", errorStyle.Render("✗"), err)
}

func (cs *chatSession) showPrompt() {
	if cs.prompt {
		cs.printf("%s ", promptStyle.Render("›"))
	}
}

func (cs *chatSession) success(msg string) {
	cs.printf("%s %s\n", successStyle.Render("✓"), msg)
}

func (cs *chatSession) info(msg string) {
	cs.printf("%s %s\n", infoStyle.Render("ℹ"), msg)
}

func (cs *chatSession) warn(msg string) {
	cs.printf("%s %s\n", warningStyle.Render("⚠"), msg)
}

func (cs *chatSession) printf(format string, args ...interface{}) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	_, _ = fmt.Fprintf(cs.out, format, args...)
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "Model replies come from (default from config)")
}
