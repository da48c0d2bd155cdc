// Package repl implements the Read-Eval-Print Loop for the Fur programming language.
//
// The REPL provides an interactive interface for users to enter Fur code,
// have it compiled and executed, and see the results immediately. It uses the
// Charm libraries (Bubbletea, Bubbles, and Lipgloss) to create a modern,
// user-friendly terminal interface with features like syntax highlighting
// and command history.
//
// Key features:
//   - Interactive input, compilation, and execution
//   - Command history with per-entry timing
//   - Multiline input while def/if/while blocks are unterminated
//   - Styled output with different colors for results and errors
//   - Persistent state: one symbol table, compiler, and thread live across
//     entries, so bindings stay on the value stack between lines
//
// The main entry point is the Start function, which initializes and runs the
// REPL with the given username.
package repl

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kerkeslager/fur-infinity/code"
	"github.com/kerkeslager/fur-infinity/compiler"
	"github.com/kerkeslager/fur-infinity/lexer"
	"github.com/kerkeslager/fur-infinity/parser"
	"github.com/kerkeslager/fur-infinity/symbol"
	"github.com/kerkeslager/fur-infinity/token"
	"github.com/kerkeslager/fur-infinity/vm"
)

const (
	// Prompt is the default prompt for the REPL
	Prompt = "> "

	// ContPrompt is the continuation prompt used in multiline input mode within the REPL.
	ContPrompt = ". "
)

// Options contains configuration options for the REPL
type Options struct {
	NoColor bool // Disable syntax highlighting and colored output
	Debug   bool // Print the disassembly of each entry after running it
}

// Start initializes and runs the REPL with the given username and options.
// It creates a new bubbletea program with an initial model and runs it.
// The username is displayed in the welcome message of the REPL.
// If an error occurs while running the program, it is printed to the console.
func Start(username string, options Options) {
	p := tea.NewProgram(initialModel(username, options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	parseErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	compileErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF5F87"))

	runtimeErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF8700")).
				Bold(true)

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	// Syntax highlighting styles
	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	literalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	operatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	delimiterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))
)

// ErrorType represents the type of error that occurred
type ErrorType int

const (
	// NoError indicates that no error occurred.
	NoError ErrorType = iota

	// ParseError indicates an error during parsing.
	ParseError

	// CompileError indicates an error during bytecode generation.
	CompileError

	// RuntimeError indicates an error during execution.
	RuntimeError
)

// evalResultMsg reports a finished evaluation back to the model.
type evalResultMsg struct {
	output    string
	isError   bool
	errorType ErrorType
	elapsed   time.Duration
	lineCount int
	asm       string
}

// session is the persistent evaluation state shared by every entry: names
// interned once, the compiler's symbol stack mirroring the thread's value
// stack, and the thread whose stack holds the live bindings. Each entry gets
// its own Code; earlier Codes stay alive through the closures they own.
type session struct {
	symbols  *symbol.Table
	comp     *compiler.Compiler
	thread   *vm.Thread
	nextLine int
}

func newSession() *session {
	symbols := symbol.NewTable()
	return &session{
		symbols:  symbols,
		comp:     compiler.New(symbols),
		thread:   vm.NewThread(),
		nextLine: 1,
	}
}

// model represents the state of the application
type model struct {
	textInput       textinput.Model
	history         []historyEntry
	session         *session
	username        string
	evaluating      bool
	currentInput    string
	multilineBuffer string
	isMultiline     bool
	spinner         spinner.Model
	options         Options
}

// applyStyle applies a lipgloss style to a string, respecting the NoColor option
func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

// historyEntry represents a single entry in the REPL history
type historyEntry struct {
	input          string
	output         string
	isError        bool
	errorType      ErrorType
	evaluationTime time.Duration
	asm            string
}

// initialModel creates a new model with default values
func initialModel(username string, options Options) model {
	ti := textinput.New()
	ti.Placeholder = "Enter Fur code"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		textInput: ti,
		session:   newSession(),
		username:  username,
		spinner:   s,
		options:   options,
	}
}

// Init is the first function that will be called
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced reports whether every def/if/while block in the input has its
// end, and every open paren its close. Unbalanced input sends the REPL into
// multiline mode.
func isBalanced(input string) bool {
	l := lexer.New(input)
	blocks := 0
	parens := 0

	for {
		tok := l.NextToken()
		switch tok.Type {
		case token.DEF, token.IF, token.WHILE:
			blocks++
		case token.END:
			blocks--
		case token.LPAREN:
			parens++
		case token.RPAREN:
			parens--
		case token.EOF:
			return blocks <= 0 && parens <= 0
		}
	}
}

// evalCmd is a command that evaluates Fur code asynchronously. Besides this
// command, only Update touches the session, advancing nextLine once the
// result has arrived; the model refuses new input while an evaluation is in
// flight, so the two never overlap.
func evalCmd(input string, s *session, debug bool) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		lineCount := strings.Count(input, "\n") + 1

		result := evalResultMsg{lineCount: lineCount}

		l := lexer.NewAtLine(input, s.nextLine)
		p := parser.New(l)
		program := p.ParseProgram()

		if len(p.Errors()) != 0 {
			result.isError = true
			result.errorType = ParseError
			result.output = formatParseErrors(p.Errors())
			result.elapsed = time.Since(start)
			return result
		}

		co := code.New()
		startOffset, err := s.comp.Compile(co, program)
		if err != nil {
			result.isError = true
			result.errorType = CompileError
			result.output = fmt.Sprintf("Compile error: %s", err)
			result.elapsed = time.Since(start)
			return result
		}

		if debug {
			result.asm = co.DisassembleFrom(startOffset)
		}

		produced, err := s.thread.Run(co, startOffset)
		if err != nil {
			result.isError = true
			result.errorType = RuntimeError
			result.output = formatRuntimeError(err.Error())
			result.elapsed = time.Since(start)
			return result
		}

		result.output = produced.Repr()
		result.elapsed = time.Since(start)
		return result
	}
}

// formatError writes an error history entry, styling the tips separately.
func (m model) formatError(style *lipgloss.Style, entry *historyEntry, s *strings.Builder) {
	parts := strings.Split(entry.output, "\nTips:")
	if len(parts) > 1 {
		if m.options.NoColor {
			s.WriteString(parts[0])
			s.WriteString("\n")
			s.WriteString("Tips:" + parts[1])
		} else {
			s.WriteString(style.Render(parts[0]))
			s.WriteString("\n")
			s.WriteString(historyStyle.Render("Tips:" + parts[1]))
		}
	} else {
		if m.options.NoColor {
			s.WriteString(entry.output)
		} else {
			s.WriteString(style.Render(entry.output))
		}
	}
}

// Update handles all the updates to our model
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false
		m.session.nextLine += msg.lineCount

		m.history = append(m.history, historyEntry{
			input:          m.currentInput,
			output:         msg.output,
			isError:        msg.isError,
			errorType:      msg.errorType,
			evaluationTime: msg.elapsed,
			asm:            msg.asm,
		})

		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		// Ignore key presses while evaluating, except for Ctrl+C
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				// An empty line in multiline mode forces evaluation
				if m.isMultiline {
					if m.multilineBuffer == "" {
						m.isMultiline = false
						return m, nil
					}

					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.textInput.SetValue("")
					m.isMultiline = false

					buffer := m.multilineBuffer
					m.multilineBuffer = ""

					return m, evalCmd(buffer, m.session, m.options.Debug)
				}
				return m, nil
			}

			if m.isMultiline {
				m.multilineBuffer += "\n" + input
				m.textInput.SetValue("")

				if isBalanced(m.multilineBuffer) {
					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.isMultiline = false

					buffer := m.multilineBuffer
					m.multilineBuffer = ""

					return m, evalCmd(buffer, m.session, m.options.Debug)
				}

				return m, nil
			}

			if !isBalanced(input) {
				m.isMultiline = true
				m.multilineBuffer = input
				m.textInput.SetValue("")
				return m, nil
			}

			m.evaluating = true
			m.currentInput = input
			m.textInput.SetValue("")

			return m, evalCmd(input, m.session, m.options.Debug)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}

	if m.evaluating {
		return m, m.spinner.Tick
	}

	return m, cmd
}

// View renders the current UI
func (m model) View() string {
	var s strings.Builder

	s.WriteString(m.applyStyle(titleStyle, " Fur "))
	s.WriteString("\n")

	if m.username != "" {
		s.WriteString(fmt.Sprintf("\nHello %s! Feel free to type in Fur code\n", m.username))
	}
	s.WriteString("\n")

	for _, entry := range m.history {
		lines := strings.Split(entry.input, "\n")
		for i, line := range lines {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightCode(line))
			s.WriteString("\n")
		}

		if entry.asm != "" {
			s.WriteString(m.applyStyle(historyStyle, entry.asm))
		}

		if entry.isError {
			switch entry.errorType {
			case ParseError:
				m.formatError(&parseErrorStyle, &entry, &s)
			case RuntimeError:
				m.formatError(&runtimeErrorStyle, &entry, &s)
			default:
				m.formatError(&compileErrorStyle, &entry, &s)
			}
		} else {
			if m.options.NoColor {
				s.WriteString(entry.output)
			} else {
				s.WriteString(resultStyle.Render(entry.output))
			}
		}

		// Show evaluation time if it took more than 10 ms
		if entry.evaluationTime > 10*time.Millisecond {
			timeStr := fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())
			if m.options.NoColor {
				s.WriteString(timeStr)
			} else {
				s.WriteString(historyStyle.Render(timeStr))
			}
		}

		s.WriteString("\n\n")
	}

	if m.evaluating {
		if m.options.NoColor {
			s.WriteString(Prompt)
		} else {
			s.WriteString(promptStyle.Render(Prompt))
		}
		s.WriteString(m.highlightCode(m.currentInput))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" Evaluating...")
		s.WriteString("\n\n")
	}

	if m.isMultiline && !m.evaluating {
		for _, line := range strings.Split(m.multilineBuffer, "\n") {
			s.WriteString(m.applyStyle(historyStyle, ContPrompt))
			s.WriteString(m.highlightCode(line))
			s.WriteString("\n")
		}
	}

	if !m.evaluating {
		if m.isMultiline {
			if m.options.NoColor {
				m.textInput.Prompt = ContPrompt
			} else {
				m.textInput.Prompt = promptStyle.Render(ContPrompt)
			}
		} else {
			if m.options.NoColor {
				m.textInput.Prompt = Prompt
			} else {
				m.textInput.Prompt = promptStyle.Render(Prompt)
			}
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	helpText := "\nPress Esc or Ctrl+C/D to exit"
	if m.isMultiline {
		helpText += " | Multiline mode: finish the block or enter an empty line to evaluate"
	} else {
		helpText += " | Blocks continue across lines until their end"
	}
	if m.options.NoColor {
		s.WriteString(helpText)
	} else {
		s.WriteString(historyStyle.Render(helpText))
	}

	return s.String()
}

// formatParseErrors formats parser errors into a string with improved readability
func formatParseErrors(errors []string) string {
	var s strings.Builder
	s.WriteString("Parser Errors:\n")

	for i, msg := range errors {
		s.WriteString(fmt.Sprintf("  %d. %s\n", i+1, msg))
	}

	s.WriteString("\nTips:\n")
	s.WriteString("  • Check that every def, if, and while has a matching end\n")
	s.WriteString("  • Check for missing parentheses or colons\n")
	s.WriteString("  • Ensure variable names are valid identifiers\n")

	return s.String()
}

// formatRuntimeError formats a runtime error into a string with improved readability
func formatRuntimeError(errorMsg string) string {
	var s strings.Builder
	s.WriteString("Runtime Error:\n")
	s.WriteString("  " + errorMsg + "\n")

	s.WriteString("\nTips:\n")

	//nolint:gocritic
	if strings.Contains(errorMsg, "takes") {
		s.WriteString("  • Check the call has the correct number of arguments\n")
		s.WriteString("  • Verify the function definition matches its usage\n")
	} else if strings.Contains(errorMsg, "division by zero") {
		s.WriteString("  • Guard the division with a check on the divisor\n")
	} else if strings.Contains(errorMsg, "cannot") {
		s.WriteString("  • Ensure operands are of compatible types\n")
		s.WriteString("  • Arithmetic needs integers; and/or/not need booleans\n")
	} else {
		s.WriteString("  • Review your code logic\n")
		s.WriteString("  • Consider breaking complex expressions into simpler steps\n")
	}

	return s.String()
}

// highlightCode applies syntax highlighting to Fur code. Spacing is
// preserved: each token literal is located in the source and restyled in
// place.
func (m model) highlightCode(source string) string {
	if m.options.NoColor {
		return source
	}

	l := lexer.New(source)
	var s strings.Builder
	cursor := 0

	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}

		index := strings.Index(source[cursor:], tok.Literal)
		if index < 0 || tok.Literal == "" {
			break
		}

		s.WriteString(source[cursor : cursor+index])
		cursor += index + len(tok.Literal)

		switch tok.Type {
		case token.NIL, token.TRUE, token.FALSE, token.NOT, token.AND, token.OR,
			token.IF, token.ELSE, token.END, token.WHILE, token.DEF:
			s.WriteString(keywordStyle.Render(tok.Literal))
		case token.NUMBER:
			s.WriteString(literalStyle.Render(tok.Literal))
		case token.SQSTR, token.DQSTR:
			s.WriteString(stringStyle.Render(tok.Literal))
		case token.ASSIGN, token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.DOT,
			token.LT, token.GT, token.LEQ, token.GEQ, token.EQ, token.NOT_EQ:
			s.WriteString(operatorStyle.Render(tok.Literal))
		case token.COMMA, token.COLON, token.SEMICOLON, token.LPAREN, token.RPAREN:
			s.WriteString(delimiterStyle.Render(tok.Literal))
		default:
			s.WriteString(tok.Literal)
		}
	}

	s.WriteString(source[cursor:])
	return s.String()
}
