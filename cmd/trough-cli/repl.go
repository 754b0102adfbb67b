package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Repl drives one interactive trough-cli session: a connected set of
// segments, read-only by default, executing SQL against whichever
// readable copy the master currently reports for each.
type Repl struct {
	client   *Client
	segments []string
	writable bool
	schemaID string
	pretty   bool
}

// NewRepl returns a Repl connected to segments via client.
func NewRepl(client *Client, segments []string, writable bool, schemaID string) *Repl {
	return &Repl{
		client:   client,
		segments: segments,
		writable: writable,
		schemaID: schemaID,
		pretty:   true,
	}
}

// Prompt renders the current "trough:<segments>(ro|rw)> " line.
func (r *Repl) Prompt() string {
	label := "[no segments]"
	if len(r.segments) == 1 {
		label = r.segments[0]
	} else if len(r.segments) > 1 {
		label = fmt.Sprintf("[%d segments]", len(r.segments))
	}
	mode := "ro"
	if r.writable {
		mode = "rw"
	}
	return fmt.Sprintf("trough:%s(%s)> ", label, mode)
}

// Run reads lines from in, dispatching each to Dispatch and writing its
// output to out, until EOF or a quit command. ctx is passed to each
// Dispatch call; canceling it does not interrupt a pending read from in.
func (r *Repl) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "Welcome to the trough shell. Type help or ? to list commands.\n")
	fmt.Fprint(out, r.Prompt())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(out, r.Prompt())
			continue
		}
		output, exit, err := r.Dispatch(ctx, line)
		if output != "" {
			fmt.Fprintln(out, output)
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if exit {
			return nil
		}
		fmt.Fprint(out, r.Prompt())
	}
	return scanner.Err()
}

// Dispatch executes one REPL line and returns its textual output,
// whether the session should now exit, and any error encountered.
func (r *Repl) Dispatch(ctx context.Context, line string) (string, bool, error) {
	switch {
	case line == "quit" || line == "exit" || line == "bye":
		return "bye!", true, nil
	case line == "pretty":
		r.pretty = !r.pretty
		return fmt.Sprintf("pretty print %s", onOff(r.pretty)), false, nil
	case line == "help" || line == "?":
		return helpText, false, nil
	case strings.HasPrefix(line, "show "):
		return r.dispatchShow(ctx, strings.TrimPrefix(line, "show "))
	case strings.HasPrefix(line, "connect "):
		return r.dispatchConnect(strings.TrimPrefix(line, "connect "))
	case strings.HasPrefix(line, "select "):
		return r.dispatchSelect(ctx, line)
	default:
		if r.writable {
			return r.dispatchWrite(ctx, line)
		}
		return "", false, fmt.Errorf("refusing to execute arbitrary sql (in read-only mode)")
	}
}

func (r *Repl) dispatchShow(ctx context.Context, arg string) (string, bool, error) {
	arg = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(arg), ";"))
	switch {
	case strings.HasPrefix(arg, "segments"):
		segments, err := r.client.ReadableSegments(ctx)
		if err != nil {
			return "", false, err
		}
		rows := make([][]string, len(segments))
		for i, s := range segments {
			rows[i] = []string{s}
		}
		return renderTable([]string{"segment"}, rows), false, nil
	case strings.HasPrefix(arg, "connections"):
		rows := make([][]string, len(r.segments))
		for i, s := range r.segments {
			rows[i] = []string{s}
		}
		return renderTable([]string{"connection"}, rows), false, nil
	default:
		return "", false, fmt.Errorf("unrecognized show subcommand %q", arg)
	}
}

func (r *Repl) dispatchConnect(arg string) (string, bool, error) {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return "", false, fmt.Errorf("connect requires at least one segment id")
	}
	r.segments = fields
	return fmt.Sprintf("connected to %d segment(s)", len(r.segments)), false, nil
}

func (r *Repl) dispatchSelect(ctx context.Context, line string) (string, bool, error) {
	if len(r.segments) == 0 {
		return "", false, fmt.Errorf("not connected to any segment")
	}

	var out strings.Builder
	totalRows := 0
	for _, segmentID := range r.segments {
		copies, err := r.client.ReadableCopies(ctx, segmentID)
		if err != nil {
			fmt.Fprintf(&out, "%s: %v\n", segmentID, err)
			continue
		}
		if len(copies) == 0 {
			fmt.Fprintf(&out, "%s: no readable copy available\n", segmentID)
			continue
		}
		replica := copies[0]
		rows, err := r.client.Query(ctx, replica.Node, replica.Port, segmentID, line)
		if err != nil {
			fmt.Fprintf(&out, "%s: %v\n", segmentID, err)
			continue
		}
		totalRows += len(rows)
		cols := columnsOf(rows)
		cells := rowsToStrings(rows, cols)
		if r.pretty {
			out.WriteString(renderTable(cols, cells))
		} else {
			lines := make([]string, len(cells))
			for i, row := range cells {
				lines[i] = strings.Join(row, "\t")
			}
			out.WriteString(strings.Join(lines, "\n"))
		}
		out.WriteString("\n")
	}
	fmt.Fprintf(&out, "%d results\n", totalRows)
	return strings.TrimRight(out.String(), "\n"), false, nil
}

func (r *Repl) dispatchWrite(ctx context.Context, stmt string) (string, bool, error) {
	if len(r.segments) != 1 {
		return "", false, fmt.Errorf("writes require exactly one connected segment, have %d", len(r.segments))
	}
	segmentID := r.segments[0]

	writerURL, err := r.client.ProvisionWritable(ctx, segmentID)
	if err != nil {
		return "", false, fmt.Errorf("provision writer for %s: %w", segmentID, err)
	}
	host, port, err := hostPort(writerURL)
	if err != nil {
		return "", false, err
	}

	affected, err := r.client.Exec(ctx, host, port, segmentID, stmt)
	if err != nil {
		return "", false, err
	}
	return fmt.Sprintf("%d rows affected", affected), false, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

const helpText = `Available commands:
  show segments              list every segment with a readable copy
  show connections           list currently connected segments
  connect <segment> [...]    connect to one or more segments
  pretty                     toggle pretty-printed result tables
  select ...                 run a read query against connected segments
  <sql>                      (writable mode only) run a write statement
  quit | exit | bye          leave the shell`
