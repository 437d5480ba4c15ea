package mcpserver

// SectionSemanticsContract describes the canonical section behavior
// that LLM consumers should understand before creating sections or
// moving tasks.
const SectionSemanticsContract = `# Dagaz Section Semantics Contract

Canvas sections are rectangular regions on the task board. Their
behavior depends on the section type, which is fixed at creation.

## Types

| type     | property assigned | property_value example |
|----------|-------------------|------------------------|
| priority | task priority     | high                   |
| status   | task status       | done                   |
| project  | task project      | project id             |
| timeline | task due date     | 2026-09-01 (YYYY-MM-DD)|
| custom   | nothing           | (must be empty)        |

## Rules

1. **Smart types require a property_value**; custom sections must not
   carry one. The type can never be changed after creation.
2. **Auto-collect is drop-triggered and one-way.** Moving a task inside
   an auto-collect smart section assigns the section's value to the
   matching task field. Moving it back out does NOT revert the value.
3. **Overlap resolution.** When sections overlap, the smallest section
   containing the drop point wins; equal areas go to the most recently
   created section.
4. **Tasks without a canvas position live in the inbox** and belong to
   no section, whatever their properties say.
5. **Collapse preserves layout.** Collapsing a section hides its tasks
   and shrinks it to a header; expanding restores every task to its
   exact pre-collapse position and the section to its original size.
6. **Every task mutation is undoable** via the undo_board tool,
   including the position changes a collapse or expand makes. Section
   geometry and metadata changes are not part of the undo history.

## Workflow hints

- Call board_overview first to see what exists.
- Use list_sections for exact geometry before choosing drop positions.
- A drop position must land inside the target section's rectangle:
  pick the section center (x + width/2, y + height/2).
`
