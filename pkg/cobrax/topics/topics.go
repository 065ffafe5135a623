// Package topics adds file-backed help topics to a Cobra application.
// A directory of .txt/.md files becomes `<app> help <topic>` and
// `<app> help topics`, alongside the regular per-command help.
package topics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// optionPrefix marks topics that document a flag. `help --dry-run`
// resolves to the topic file "option-dry-run".
const optionPrefix = "option-"

// Topic is one help document loaded from the topics directory.
type Topic struct {
	Name    string
	Path    string
	Content string
}

// Options configures a Manager.
type Options struct {
	// Extensions lists the file extensions treated as topics.
	// Defaults to [".txt", ".md"].
	Extensions []string

	// Renderer formats topic content for display. Defaults to
	// PlainRenderer.
	Renderer Renderer
}

// Manager holds the loaded topics of one application.
type Manager struct {
	dir          string
	topics       map[string]*Topic
	extensions   []string
	renderer     Renderer
	originalHelp func(*cobra.Command, []string)
}

// New returns a Manager over dir with default options.
func New(dir string) *Manager {
	return NewWithOptions(dir, Options{})
}

// NewWithOptions returns a Manager over dir.
func NewWithOptions(dir string, opts Options) *Manager {
	m := &Manager{
		dir:        dir,
		topics:     make(map[string]*Topic),
		extensions: opts.Extensions,
		renderer:   opts.Renderer,
	}
	if len(m.extensions) == 0 {
		m.extensions = []string{".txt", ".md"}
	}
	if m.renderer == nil {
		m.renderer = &PlainRenderer{}
	}
	return m
}

// Load reads every topic file under the directory. A missing directory
// is not an error; the application simply has no topics.
func (m *Manager) Load() error {
	if _, err := os.Stat(m.dir); os.IsNotExist(err) {
		return nil
	}

	return filepath.Walk(m.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if !m.supported(ext) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		name := strings.TrimSuffix(filepath.Base(path), ext)
		m.topics[name] = &Topic{
			Name:    name,
			Path:    path,
			Content: string(content),
		}
		return nil
	})
}

func (m *Manager) supported(ext string) bool {
	for _, e := range m.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Get looks up a topic. Flag spellings are accepted: "--dry-run" and
// "dry-run" both find the topic "option-dry-run" when no plain topic of
// that name exists.
func (m *Manager) Get(name string) (*Topic, bool) {
	name = strings.TrimPrefix(name, "--")
	name = strings.TrimPrefix(name, "-")

	if topic, ok := m.topics[name]; ok {
		return topic, true
	}
	topic, ok := m.topics[optionPrefix+name]
	return topic, ok
}

// Names returns every loaded topic name, sorted.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.topics))
	for name := range m.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// render writes one topic through the configured renderer.
func (m *Manager) render(w io.Writer, topic *Topic) {
	fmt.Fprint(w, m.renderer.Render(topic.Content, filepath.Ext(topic.Path)))
}

// list writes the topic index, split into general and flag topics.
func (m *Manager) list(w io.Writer, appName string) {
	names := m.Names()
	if len(names) == 0 {
		fmt.Fprintln(w, "No help topics available.")
		return
	}

	var general, options []string
	for _, name := range names {
		if strings.HasPrefix(name, optionPrefix) {
			options = append(options, strings.TrimPrefix(name, optionPrefix))
		} else {
			general = append(general, name)
		}
	}

	fmt.Fprintln(w, "Available help topics:")
	if len(general) > 0 {
		fmt.Fprintln(w, "\nGeneral topics:")
		for _, name := range general {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	if len(options) > 0 {
		fmt.Fprintln(w, "\nOption topics:")
		for _, name := range options {
			fmt.Fprintf(w, "  --%s\n", name)
		}
	}
	fmt.Fprintf(w, "\nUse '%s help <topic>' to read about a specific topic.\n", appName)
}

// Initialize loads the topics under dir and installs the help system on
// rootCmd with default options.
func Initialize(rootCmd *cobra.Command, dir string) error {
	return InitializeWithOptions(rootCmd, dir, Options{})
}

// InitializeWithOptions loads the topics under dir and installs the
// help system on rootCmd: a `help [command or topic]` command plus a
// help function that understands topic names. Unknown names fall back
// to Cobra's regular command help.
func InitializeWithOptions(rootCmd *cobra.Command, dir string, opts Options) error {
	m := NewWithOptions(dir, opts)
	if err := m.Load(); err != nil {
		return fmt.Errorf("failed to load help topics: %w", err)
	}

	m.originalHelp = rootCmd.HelpFunc()

	helpCmd := &cobra.Command{
		Use:   "help [command or topic]",
		Short: "Help about any command or topic",
		Long: fmt.Sprintf(`Help provides help for any command or topic in the application.
Simply type %[1]s help [path to command or topic] for full details.

To see all available help topics:
  %[1]s help topics`, rootCmd.Name()),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			completions := []string{"topics"}
			for _, c := range rootCmd.Commands() {
				if !c.Hidden {
					completions = append(completions, c.Name())
				}
			}
			completions = append(completions, m.Names()...)
			return completions, cobra.ShellCompDirectiveNoFileComp
		},
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()

			if len(args) == 0 {
				m.originalHelp(rootCmd, []string{})
				return
			}
			if args[0] == "topics" {
				m.list(w, rootCmd.Name())
				return
			}
			if topic, ok := m.Get(args[0]); ok {
				m.render(w, topic)
				return
			}
			// Not a topic; hand over to the regular command help.
			m.originalHelp(rootCmd, args)
		},
	}

	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "help" {
			rootCmd.RemoveCommand(cmd)
			break
		}
	}
	rootCmd.AddCommand(helpCmd)

	// `--help <topic>` should work the same as `help <topic>`.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			if topic, ok := m.Get(args[0]); ok {
				m.render(cmd.OutOrStdout(), topic)
				return
			}
		}
		m.originalHelp(cmd, args)
	})

	return nil
}
