package mcpserver

// PromptGuide describes how configured prompts treat selections and
// attachment embeds, for LLM consumers driving the run_prompt tool.
const PromptGuide = `# Ansuz Prompt Guide

Prompts are configured server-side; each one binds an instruction text to a
selection mode. The run_prompt tool executes a prompt against a note and
streams the completion straight into that note.

## Prompt definition

` + "```" + `yaml
prompts:
  - id: summarize                 # REQUIRED - stable id used by run_prompt
    name: Summarize note          # display name
    prompt: Summarize this note.  # instruction sent to the model
    selection_mode: whole-note    # whole-note | selection-context | selection-instruction
    provider: anthropic           # OPTIONAL - defaults to the configured provider
    model: claude-sonnet-4-5      # OPTIONAL - defaults to the configured model
` + "```" + `

## Selection modes

1. **whole-note** - title, tags and the full note body are sent. Any
   selection only marks where the output goes.
2. **selection-context** - the selected text alone becomes the instruction;
   the rest of the note is discarded.
3. **selection-instruction** - the selected text is the instruction and the
   note minus the selected span is sent along as context.

In every mode the selected range is replaced by the streamed output. Without a
selection the output is appended to the end of the note. A selection that is
only whitespace counts as no selection and falls back to whole-note.

## Attachment embeds

- Notes reference binary attachments with ` + "`" + `![[name]]` + "`" + ` embeds
  (e.g. ` + "`" + `![[chart.png]]` + "`" + ` or ` + "`" + `![[assets/scan.pdf]]` + "`" + `).
- Embedded images (png, jpg, jpeg, gif, bmp, svg) and PDFs found in the note
  or the selection are attached to the model request alongside the text.
- An embed that cannot be resolved produces a notice
  (` + "`" + `File not found: <name>` + "`" + `) and the run continues without it.
- Each attachment is sent once even when embedded multiple times.

## Run behavior

- The selection is consumed as soon as the run starts; if the provider fails
  before producing output, the selection is simply gone.
- Output streamed before a mid-run provider failure is kept and written back.
- If the note changes on disk while a run is in flight, the result is
  discarded and the tool reports a conflict instead of overwriting the edit.
`
