// Package fileops provides confined file system traversal and path validation.
//
// Everything here assumes a single trusted base directory. Paths handed in by
// callers are untrusted and must be shown to stay below that base before any
// file is opened.
//
// # Containment
//
// ContainedPath is the primitive: it resolves a path against a base and fails
// unless the result is the base or one of its descendants. The check is
// segment-aware, so "/work/shop-old" is not inside "/work/shop".
//
//	abs, rel, err := fileops.ContainedPath(projectRoot, userPath)
//	if err != nil {
//	    return fmt.Errorf("path rejected: %w", err)
//	}
//
// ValidateSymlinkSecurity repeats the check on the final target of a link.
//
// # Walking
//
// Walker visits regular files below a directory in depth-first name order.
// It opens everything through an os.Root, so symlinks that point outside the
// root are never followed. Hidden entries, node_modules and dist are skipped
// by default.
//
//	w, err := fileops.NewWalker(projectRoot, nil)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	stats, err := w.Walk("src/app", func(f fileops.FileInfo) error {
//	    if len(hits) >= limit {
//	        return fileops.ErrStopWalk
//	    }
//	    ...
//	    return nil
//	})
package fileops
