package scm

import (
	git "github.com/go-git/go-git/v5"
)

// RepoInfo identifies the source revision an image was built from. The
// revision and origin URL end up as OCI labels on the final image.
type RepoInfo struct {
	Revision string
	Source   string
}

// Describe returns commit info for the repository containing dir, or nil when
// dir is not inside a git work tree.
func Describe(dir string) *RepoInfo {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil
	}

	head, err := repo.Head()
	if err != nil {
		return nil
	}

	info := &RepoInfo{Revision: head.Hash().String()}

	if origin, err := repo.Remote("origin"); err == nil && len(origin.Config().URLs) > 0 {
		info.Source = origin.Config().URLs[0]
	}

	return info
}
