package mcpserver

// WorkspaceConventions describes how notex treats files in a workspace so
// LLM consumers can create notes that behave like ones typed in the editor.
const WorkspaceConventions = `# notex Workspace Conventions

A workspace is a plain directory. Every regular file in it, at any depth, is a note.

## Naming

- Paths are relative to the workspace root and use forward slashes.
- Names starting with a dot and the name ` + "`pinned.json`" + ` are reserved and never listed.
- Plain-text notes (` + "`.txt`" + `) are renamed after their first line once editing settles.
  The first line is trimmed, stripped of ` + "`" + `/ \ : * ? " < > |` + "`" + ` and cut to 50 characters.
- Markdown notes use the ` + "`title`" + ` field of their YAML frontmatter instead.

## Hidden and pinned notes

- Deleting a note without ` + "`permanent`" + ` only hides it. Hidden paths live in
  ` + "`.hidden.json`" + ` at the workspace root and can be restored.
- Pinned notes always sort before unpinned ones. Pins follow renames.

## Ordering

Within each partition notes sort by ` + "`modified`" + ` (default, newest first), ` + "`date`" + ` or ` + "`name`" + `.
`
