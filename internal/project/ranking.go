package project

import (
	"sort"

	"github.com/temirov/filebundler/internal/tree"
)

// RankedNode is a file or directory with its aggregated figures.
type RankedNode struct {
	RelativePath string
	IsDir        bool
	Tokens       int
	Words        int
	Size         int64
}

// Ranking lists the files and the directories of the tree with the most tokens.
type Ranking struct {
	Files       []RankedNode
	Directories []RankedNode
}

// Ranking computes per-file figures for the whole tree, aggregates them into
// every directory below the root and returns the limit largest entries of each
// kind by tokens. A non-positive limit returns every entry.
func (project *Project) Ranking(limit int) Ranking {
	project.mutex.Lock()
	defer project.mutex.Unlock()

	var ranking Ranking
	directoryTotals := make(map[*tree.Node]*RankedNode)
	for _, file := range project.tree.Files() {
		fileStats, statsError := project.stats.File(file.Path)
		if statsError != nil || fileStats.Binary {
			continue
		}
		ranking.Files = append(ranking.Files, RankedNode{
			RelativePath: file.RelativePath,
			Tokens:       fileStats.Tokens,
			Words:        fileStats.Words,
			Size:         fileStats.Size,
		})
		for ancestor := project.tree.Parent(file); ancestor != nil && !ancestor.IsRoot(); ancestor = project.tree.Parent(ancestor) {
			total, found := directoryTotals[ancestor]
			if !found {
				total = &RankedNode{RelativePath: ancestor.RelativePath, IsDir: true}
				directoryTotals[ancestor] = total
			}
			total.Tokens += fileStats.Tokens
			total.Words += fileStats.Words
			total.Size += fileStats.Size
		}
	}
	for _, total := range directoryTotals {
		ranking.Directories = append(ranking.Directories, *total)
	}
	ranking.Files = topByTokens(ranking.Files, limit)
	ranking.Directories = topByTokens(ranking.Directories, limit)
	return ranking
}

func topByTokens(entries []RankedNode, limit int) []RankedNode {
	sort.SliceStable(entries, func(leftIndex, rightIndex int) bool {
		if entries[leftIndex].Tokens != entries[rightIndex].Tokens {
			return entries[leftIndex].Tokens > entries[rightIndex].Tokens
		}
		return entries[leftIndex].RelativePath < entries[rightIndex].RelativePath
	})
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
