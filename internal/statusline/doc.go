// Package statusline prints publisher status updates to a terminal, one
// styled line per update. Colors are dropped when the writer is not a terminal.
package statusline
