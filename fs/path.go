package fs

import (
	"fmt"
	"strings"

	"github.com/tfg13/sdi4fs/block"
	"github.com/tfg13/sdi4fs/tree"
)

// normalizePath collapses "." and ".." components and duplicate/trailing
// slashes into one absolute path form (§4.6, §6.3).
func normalizePath(p string) (string, error) {
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("fs: path %q is not absolute: %w", p, errInvalidArgument)
	}
	var stack []string
	for _, part := range strings.Split(p, "/") {
		switch part {
		case "", ".":
			// skip
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, part)
		}
	}
	return "/" + strings.Join(stack, "/"), nil
}

// splitLast returns the parent path and final component of an already
// normalized absolute path. For "/" it returns ("/", "").
func splitLast(p string) (string, string) {
	if p == "/" {
		return "/", ""
	}
	idx := strings.LastIndexByte(p, '/')
	parent := p[:idx]
	if parent == "" {
		parent = "/"
	}
	return parent, p[idx+1:]
}

// searchParent resolves an already-normalized absolute path's parent
// directory, enforcing that every intermediate component is a directory
// (§4.6). It returns the loaded Directory and the final path component.
func (f *FS) searchParent(p string) (*tree.Directory, string, error) {
	parentPath, name := splitLast(p)
	dir, err := f.loadDirectory(RootINodeID)
	if err != nil {
		return nil, "", err
	}
	if parentPath == "/" {
		return dir, name, nil
	}
	for _, part := range strings.Split(strings.Trim(parentPath, "/"), "/") {
		id, ok := dir.SearchHardlink(part)
		if !ok {
			return nil, "", fmt.Errorf("fs: path component %q: %w", part, errNotFound)
		}
		typ, err := f.peekINodeType(id)
		if err != nil {
			return nil, "", err
		}
		if typ != block.TypeDir {
			return nil, "", fmt.Errorf("fs: path component %q is not a directory: %w", part, errWrongType)
		}
		dir, err = f.loadDirectory(id)
		if err != nil {
			return nil, "", err
		}
	}
	return dir, name, nil
}

// resolve resolves an already-normalized absolute path to its id and INode
// type, or errNotFound.
func (f *FS) resolve(p string) (uint32, uint8, error) {
	if p == "/" {
		return RootINodeID, block.TypeDir, nil
	}
	parent, name, err := f.searchParent(p)
	if err != nil {
		return 0, 0, err
	}
	id, ok := parent.SearchHardlink(name)
	if !ok {
		return 0, 0, fmt.Errorf("fs: %q: %w", p, errNotFound)
	}
	typ, err := f.peekINodeType(id)
	if err != nil {
		return 0, 0, err
	}
	return id, typ, nil
}

// isDescendant reports whether child (normalized, absolute) lies at or
// below parent in the path tree, the check rename uses to forbid moving a
// directory into its own subtree (B3).
func isDescendant(parent, child string) bool {
	if parent == "/" {
		return true
	}
	return child == parent || strings.HasPrefix(child, parent+"/")
}
