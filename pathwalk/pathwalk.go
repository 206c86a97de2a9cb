// Package pathwalk resolves slash-separated paths against the inode
// tree. It takes an *arena.Superblock the same way the allocator and
// inode layers do, and returns common.Errno values the same way. No
// parent pointer is ever stored on the arena: ancestry lives entirely on
// this call frame's stack slice, so ".." is answered by popping it
// rather than by a stored back-edge.
package pathwalk

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/arenafs/arenafs/arena"
	"github.com/arenafs/arenafs/common"
	"github.com/arenafs/arenafs/inode"
)

func splitComponents(path string) []string {
	raw := strings.Split(path, "/")
	comps := make([]string, 0, len(raw))
	for _, c := range raw {
		if c != "" {
			comps = append(comps, c)
		}
	}
	return comps
}

// descend walks from the last entry of stack through components in
// order, handling "." (skip) and ".." (pop, stopping at root) itself and
// performing a directory lookup for every other component. It returns the
// full ancestry stack (root-first, target-last).
func descend(sb *arena.Superblock, stack []common.Bnum, components []string) ([]common.Bnum, error) {
	for _, c := range components {
		switch c {
		case ".":
			continue
		case "..":
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		if len(c) > common.NameMax {
			return nil, errors.WithStack(common.ENAMETOOLONG)
		}

		cur := inode.Open(sb, stack[len(stack)-1])
		if !cur.IsDir() {
			return nil, errors.WithStack(common.ENOTDIR)
		}
		child, err := cur.Lookup(c)
		if err != nil {
			return nil, err
		}
		stack = append(stack, child)
	}
	return stack, nil
}

// Resolve walks an absolute path from the root and returns the target
// inode's block index. "/" resolves to the root.
func Resolve(sb *arena.Superblock, path string) (common.Bnum, error) {
	stack, err := descend(sb, []common.Bnum{sb.RootInodeBlock()}, splitComponents(path))
	if err != nil {
		return 0, err
	}
	return stack[len(stack)-1], nil
}

// ResolveParent walks all but path's final component and returns the
// parent directory's block index plus the final component's name
// verbatim. Unlike Resolve, a missing final component is not an error -
// only a missing (or non-directory) component before the last one is,
// which lets mknod/mkdir/rename call this even when the target does not
// exist yet.
func ResolveParent(sb *arena.Superblock, path string) (common.Bnum, string, error) {
	comps := splitComponents(path)
	if len(comps) == 0 {
		return 0, "", errors.WithStack(common.EINVAL)
	}
	name := comps[len(comps)-1]
	if len(name) > common.NameMax {
		return 0, "", errors.WithStack(common.ENAMETOOLONG)
	}

	stack, err := descend(sb, []common.Bnum{sb.RootInodeBlock()}, comps[:len(comps)-1])
	if err != nil {
		return 0, "", err
	}
	parent := stack[len(stack)-1]
	if !inode.Open(sb, parent).IsDir() {
		return 0, "", errors.WithStack(common.ENOTDIR)
	}
	return parent, name, nil
}

// IsAncestor reports whether candidate appears anywhere in target's
// ancestry chain (including target itself), walking upward one level at a
// time and finding each level's parent by searching the tree from the root
// (findParent) rather than following a stored parent pointer - used by
// rename's cycle check.
func IsAncestor(sb *arena.Superblock, candidate, target common.Bnum) bool {
	root := sb.RootInodeBlock()
	cur := target
	for {
		if cur == candidate {
			return true
		}
		if cur == root {
			return false
		}
		parent, found := findParent(sb, root, cur, nil)
		if !found {
			return false
		}
		cur = parent
	}
}

// findParent searches the tree rooted at dir for child, returning child's
// parent block. The tree is small enough (bounded by the arena's own
// block count) that a full walk is an acceptable way to answer "is
// candidate an ancestor of target" without ever storing a parent
// back-edge on the arena.
func findParent(sb *arena.Superblock, dir, child common.Bnum, visited map[common.Bnum]bool) (common.Bnum, bool) {
	if visited == nil {
		visited = map[common.Bnum]bool{}
	}
	if visited[dir] {
		return 0, false
	}
	visited[dir] = true

	var directChild bool
	inode.Open(sb, dir).Iterate(func(name string, c common.Bnum) bool {
		if c == child {
			directChild = true
			return false
		}
		return true
	})
	if directChild {
		return dir, true
	}

	var found common.Bnum
	var ok bool
	inode.Open(sb, dir).Iterate(func(name string, c common.Bnum) bool {
		if !inode.Open(sb, c).IsDir() {
			return true
		}
		if p, pok := findParent(sb, c, child, visited); pok {
			found, ok = p, true
			return false
		}
		return true
	})
	return found, ok
}
