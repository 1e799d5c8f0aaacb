package mcpserver

// LinkConventions describes how renewer writes links, so that clients
// editing notes produce links the rewriter leaves alone.
const LinkConventions = `# Link Conventions

renewer keeps Markdown links and embeds relative to the note that contains them.

## Rules

1. **Relative destinations.** A note at the vault root links with the target's vault path
   (` + "`" + `[Plan](projects/plan.md)` + "`" + `). A note in a folder links relative to that folder
   (` + "`" + `[Plan](../projects/plan.md)` + "`" + `).
2. **Encoding.** Spaces are written as ` + "`" + `%20` + "`" + `. Paths with ` + "`" + `( ) < > %` + "`" + ` are fully percent-encoded.
3. **Display text.** Link text that is a path (contains ` + "`" + `/` + "`" + `, ends with ` + "`" + `.md` + "`" + ` or contains ` + "`" + `%` + "`" + `)
   is replaced by the target's name. Embedded attachments with empty or path-like text get
   ` + "`" + `<file name>|<width>` + "`" + `.
4. **Attachments travel with notes.** An embedded attachment outside the note's folder is copied to
   ` + "`" + `<note folder>/<attachment folder name>/<file>` + "`" + ` and the embed points at the copy.
5. **Untouched.** Wikilinks (` + "`" + `[[note]]` + "`" + `), external URLs, ` + "`" + `#anchor` + "`" + `-only links, links that do not
   resolve, links in code and links in frontmatter are never rewritten.
6. **Opt out.** A note with ` + "`" + `relink: false` + "`" + ` in its frontmatter is skipped.
7. **Fragments and titles** (` + "`" + `[x](a.md#part "Title")` + "`" + `) are kept.

## Moves

Moving a note with ` + "`" + `move_note` + "`" + ` rewrites the note's own links from its new folder and the links of
notes that pointed at its old path.

## Example

` + "```" + `markdown
---
title: Weekly standup
---

See the [roadmap](../projects/roadmap.md#q3) and ![whiteboard.jpg|400](assets/whiteboard.jpg).
Wikilinks like [[alice]] stay as they are.
` + "```" + `
`
