package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
)

var (
	outputFormat string // "table", "json", "raw"
	outputField  string // for -field=key
)

// printResult outputs data in the chosen format.
func printResult(data map[string]any) {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(data) //nolint:errcheck
	case "raw":
		if outputField != "" {
			if v, ok := data[outputField]; ok {
				fmt.Println(v)
			}
		} else {
			for k, v := range data {
				fmt.Printf("%s=%v\n", k, v)
			}
		}
	default: // table
		printTable(data)
	}
}

func printTable(data map[string]any) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, k := range sortedKeys(data) {
		switch val := data[k].(type) {
		case map[string]any:
			fmt.Fprintf(w, "%s\t\n", strings.ToUpper(k))
			for _, kk := range sortedKeys(val) {
				fmt.Fprintf(w, "  %s\t%v\n", kk, val[kk])
			}
		case []any:
			printRows(w, k, val)
		default:
			fmt.Fprintf(w, "%s\t%v\n", k, data[k])
		}
	}
	w.Flush()
}

// printRows renders a list of objects (e.g. security events) as one line per
// entry, columns sorted by key. Scalar lists are joined inline.
func printRows(w *tabwriter.Writer, name string, vals []any) {
	rows := make([]map[string]any, 0, len(vals))
	for _, v := range vals {
		m, ok := v.(map[string]any)
		if !ok {
			fmt.Fprintf(w, "%s\t%s\n", name, joinAny(vals))
			return
		}
		rows = append(rows, m)
	}
	if len(rows) == 0 {
		fmt.Fprintf(w, "%s\t(none)\n", name)
		return
	}

	cols := sortedKeys(rows[0])
	fmt.Fprintf(w, "%s\n", strings.ToUpper(strings.Join(cols, "\t")))
	for _, row := range rows {
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = fmt.Sprintf("%v", row[c])
		}
		fmt.Fprintln(w, strings.Join(parts, "\t"))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinAny(vals []any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, ", ")
}

func printError(msg string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
}

func printSuccess(msg string) {
	fmt.Println(msg)
}
