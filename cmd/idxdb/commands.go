package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"IdxDB/internal/sample"
	storageengine "IdxDB/storage_engine"
	"IdxDB/types"
)

const helpText = `commands:
  create <relation>
  index <relation> <offset> [INTEGER|DOUBLE|STRING]
  insert <relation> <id> <age> <salary> <name...>
  scan <relation> <offset> <low> <GT|GTE> <high> <LT|LTE>
  dump <relation> <offset>
  check <relation> <offset>
  stats
  exit`

var errUsage = errors.New("wrong arguments, type help")

// execute runs one shell command and writes its output to w.
func execute(se *storageengine.StorageEngine, line string, w io.Writer) error {
	args := strings.Fields(line)
	switch strings.ToLower(args[0]) {
	case "help":
		fmt.Fprintln(w, helpText)
		return nil

	case "create":
		if len(args) != 2 {
			return errUsage
		}
		if err := se.CreateRelation(args[1]); err != nil {
			return err
		}
		fmt.Fprintf(w, "relation %s created\n", args[1])
		return nil

	case "index":
		if len(args) != 3 && len(args) != 4 {
			return errUsage
		}
		off, err := parseInt32(args[2])
		if err != nil {
			return err
		}
		attrType := types.INTEGER
		if len(args) == 4 {
			if attrType, err = types.ParseDatatype(args[3]); err != nil {
				return err
			}
		}
		tree, err := se.CreateIndex(args[1], off, attrType)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "index %s ready (root page %d)\n", tree.Name(), tree.RootPage())
		return nil

	case "insert":
		if len(args) < 6 {
			return errUsage
		}
		var nums [3]int32
		for i := range nums {
			n, err := parseInt32(args[2+i])
			if err != nil {
				return err
			}
			nums[i] = n
		}
		e := sample.Employee{ID: nums[0], Age: nums[1], Salary: nums[2], Name: strings.Join(args[5:], " ")}
		rid, err := se.InsertTuple(args[1], e.Encode())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "inserted at %s\n", rid)
		return nil

	case "scan":
		if len(args) != 7 {
			return errUsage
		}
		off, err := parseInt32(args[2])
		if err != nil {
			return err
		}
		low, err := parseInt32(args[3])
		if err != nil {
			return err
		}
		lowOp, err := types.ParseOperator(args[4])
		if err != nil {
			return err
		}
		high, err := parseInt32(args[5])
		if err != nil {
			return err
		}
		highOp, err := types.ParseOperator(args[6])
		if err != nil {
			return err
		}
		rows, err := se.RangeQuery(args[1], off, low, lowOp, high, highOp)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if e, err := sample.Decode(row.Data); err == nil {
				fmt.Fprintf(w, "%d\t%s\t%s\n", row.Key, row.RID, e)
			} else {
				fmt.Fprintf(w, "%d\t%s\n", row.Key, row.RID)
			}
		}
		fmt.Fprintf(w, "(%d rows)\n", len(rows))
		return nil

	case "dump", "check":
		if len(args) != 3 {
			return errUsage
		}
		off, err := parseInt32(args[2])
		if err != nil {
			return err
		}
		tree, err := se.Index(args[1], off)
		if err != nil {
			return err
		}
		if strings.EqualFold(args[0], "dump") {
			return tree.Dump(w)
		}
		if err := tree.CheckInvariants(); err != nil {
			return err
		}
		fmt.Fprintln(w, "ok")
		return nil

	case "stats":
		st, err := se.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "relations=%d disk=%d pool=%d/%d pinned=%d dirty=%d hit=%.2f pins_out=%d\n",
			st.Relations, st.DiskPages, st.BufferPool.TotalPages, st.BufferPool.Capacity,
			st.BufferPool.PinnedPages, st.BufferPool.DirtyPages, st.BufferPool.HitRate, st.Pins.Outstanding())
		names := make([]string, 0, len(st.Indexes))
		for name := range st.Indexes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ts := st.Indexes[name]
			fmt.Fprintf(w, "%s height=%d leaves=%d internals=%d entries=%d\n",
				name, ts.Height, ts.Leaves, ts.Internals, ts.Entries)
		}
		return nil
	}
	return fmt.Errorf("unknown command %q, type help", args[0])
}

func parseInt32(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not an int32", s)
	}
	return int32(n), nil
}
