package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
)

// DepartmentRelationSyncer rebuilds the department forest of one data source
// from scratch: delete all relation rows, bulk-insert the new set with
// placeholder coordinates (parents before children), then renumber each tree
// into final nested-set coordinates. The caller wraps Sync in one
// transaction; a half-applied rebuild breaks every subtree query.
type DepartmentRelationSyncer struct {
	depts    DepartmentStore
	rels     DepartmentRelationStore
	ds       datasource.DataSource
	records  []datasource.RawDepartment
	log      *logrus.Logger
	maxRoots int
}

func NewDepartmentRelationSyncer(depts DepartmentStore, rels DepartmentRelationStore, ds datasource.DataSource, records []datasource.RawDepartment, log *logrus.Logger, maxRoots int) *DepartmentRelationSyncer {
	return &DepartmentRelationSyncer{
		depts:    depts,
		rels:     rels,
		ds:       ds,
		records:  records,
		log:      log,
		maxRoots: maxRoots,
	}
}

func (s *DepartmentRelationSyncer) Name() string { return "department_relations" }

func (s *DepartmentRelationSyncer) Sync(ctx context.Context) ([]Change, error) {
	departments, err := s.depts.MapByCode(ctx, s.ds.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load departments")
	}
	if len(departments) == 0 {
		if err := s.rels.DeleteAll(ctx, s.ds.ID); err != nil {
			return nil, errors.Wrap(err, "clear department relations")
		}
		return nil, nil
	}

	parents, order, err := s.parentPointers(ctx, departments)
	if err != nil {
		return nil, err
	}

	roots, err := buildForest(parents, order)
	if err != nil {
		return nil, err
	}
	if err := assignTreeIDs(roots, s.ds.ID, s.maxRoots); err != nil {
		return nil, err
	}

	nodes := breadthFirst(roots)
	for _, node := range nodes {
		node.departmentID = departments[node.code].ID
	}

	if err := s.rels.DeleteAll(ctx, s.ds.ID); err != nil {
		return nil, errors.Wrap(err, "clear department relations")
	}
	if err := s.insertPlaceholders(ctx, nodes); err != nil {
		return nil, err
	}

	for _, root := range roots {
		renumber(root)
	}
	updates := make([]datasource.DepartmentRelation, 0, len(nodes))
	for _, node := range nodes {
		updates = append(updates, datasource.DepartmentRelation{
			ID:           node.relationID,
			DepartmentID: node.departmentID,
			TreeID:       node.treeID,
			Left:         node.left,
			Right:        node.right,
			Level:        node.level,
		})
	}
	if err := s.rels.UpdateCoordinates(ctx, updates); err != nil {
		return nil, errors.Wrap(err, "renumber department relations")
	}

	s.log.Infof("department tree rebuilt: %d departments in %d trees", len(nodes), len(roots))
	return nil, nil
}

// parentPointers derives the child->parent code map the rebuild runs on. It
// is seeded from the surviving relation rows so that departments retained by
// incremental mode keep their previous position, then overlaid with the raw
// batch, which wins.
func (s *DepartmentRelationSyncer) parentPointers(ctx context.Context, departments map[string]datasource.Department) (map[string]string, []string, error) {
	parents := make(map[string]string, len(departments))

	existing, err := s.rels.ParentCodes(ctx, s.ds.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load existing department relations")
	}
	for code, parentCode := range existing {
		if _, ok := departments[code]; !ok {
			continue
		}
		if _, ok := departments[parentCode]; !ok {
			parentCode = ""
		}
		parents[code] = parentCode
	}

	order := make([]string, 0, len(s.records))
	for _, rec := range s.records {
		if _, ok := departments[rec.Code]; !ok {
			continue
		}
		if _, seen := parents[rec.Code]; !seen {
			order = append(order, rec.Code)
		}
		parentCode := ""
		if rec.Parent != nil {
			parentCode = *rec.Parent
			if _, ok := departments[parentCode]; !ok {
				s.log.Warnf("department %q references unknown parent %q, treating as root", rec.Code, parentCode)
				parentCode = ""
			}
		}
		parents[rec.Code] = parentCode
	}

	// Departments without any pointer (never related, absent from batch)
	// become roots.
	for code := range departments {
		if _, ok := parents[code]; !ok {
			parents[code] = ""
		}
	}
	return parents, order, nil
}

// insertPlaceholders persists the relation rows level by level so parent
// rows are materialized, and their generated ids resolvable, before their
// children are written.
func (s *DepartmentRelationSyncer) insertPlaceholders(ctx context.Context, nodes []*treeNode) error {
	pending := make([]*datasource.DepartmentRelation, 0, len(nodes))
	pendingNodes := make([]*treeNode, 0, len(nodes))

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := s.rels.BulkInsert(ctx, pending); err != nil {
			return errors.Wrap(err, "insert department relations")
		}
		for i, node := range pendingNodes {
			node.relationID = pending[i].ID
		}
		pending = pending[:0]
		pendingNodes = pendingNodes[:0]
		return nil
	}

	currentLevel := -1
	for _, node := range nodes {
		depth := nodeDepth(node)
		if depth != currentLevel {
			if err := flush(); err != nil {
				return err
			}
			currentLevel = depth
		}
		rel := &datasource.DepartmentRelation{
			DataSourceID: s.ds.ID,
			DepartmentID: node.departmentID,
			TreeID:       node.treeID,
		}
		if node.parent != nil {
			parentID := node.parent.relationID
			rel.ParentID = &parentID
		}
		pending = append(pending, rel)
		pendingNodes = append(pendingNodes, node)
	}
	return flush()
}

func nodeDepth(node *treeNode) int {
	d := 0
	for p := node.parent; p != nil; p = p.parent {
		d++
	}
	return d
}
