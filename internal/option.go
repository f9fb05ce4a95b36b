package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	root   string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithWorkspaceRoot overrides the configured workspace root.
func WithWorkspaceRoot(root string) Option {
	return func(a *application) {
		if root != "" {
			a.root = root
		}
	}
}

func (a *application) workspaceRoot() string {
	if a.root != "" {
		return a.root
	}
	return a.config.Workspace.Root
}
