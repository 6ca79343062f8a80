package workspace

import "github.com/doeshing/geogenie-go/internal/domain"

// buildTree derives the layer tree from layers in top-to-bottom order.
// groupOf maps layer id to group name; ungrouped layers sit at the root.
func buildTree(layers []domain.Layer, groupOf map[string]string) domain.LayerTreeInfo {
	tree := domain.LayerTreeInfo{
		Groups:     []domain.GroupInfo{},
		LayerOrder: make([]domain.LayerOrderEntry, 0, len(layers)),
	}
	index := map[string]int{}
	for _, layer := range layers {
		tree.LayerOrder = append(tree.LayerOrder, domain.LayerOrderEntry{Name: layer.Name, IsVisible: layer.Visible})

		group := groupOf[layer.ID]
		if group == "" {
			continue
		}
		i, ok := index[group]
		if !ok {
			i = len(tree.Groups)
			index[group] = i
			tree.Groups = append(tree.Groups, domain.GroupInfo{Name: group})
		}
		tree.Groups[i].LayerCount++
		if layer.Visible {
			tree.Groups[i].IsVisible = true
		}
	}
	return tree
}
