package reftable

// Option configures a Table.
type Option func(*Table)

// WithGroup sets the container group path the table loads from and writes
// to. Defaults to DefaultReflectionGroup.
func WithGroup(groupPath string) Option {
	return func(t *Table) {
		if groupPath != "" {
			t.group = groupPath
		}
	}
}

// WithLogger sets the logger used for warnings and debug output.
func WithLogger(l *Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.logger = l
		}
	}
}
