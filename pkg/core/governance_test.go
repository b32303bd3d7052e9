//go:build governance

package core_test

import (
	"go/types"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const modulePath = "github.com/leapstack-labs/polysql"

// TestGovernance_NoTypeAliasReexports ensures engine packages don't re-export
// core AST types as aliases. Consumers use core.X directly.
func TestGovernance_NoTypeAliasReexports(t *testing.T) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports | packages.NeedTypes,
	}
	pkgs, err := packages.Load(cfg, modulePath+"/pkg/...")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}

	forbidden := map[string]bool{
		"Node": true, "Expr": true, "Stmt": true, "TableRef": true,
		"SelectStmt": true, "InsertStmt": true, "UpdateStmt": true, "DeleteStmt": true,
		"CreateTableStmt": true, "DropTableStmt": true, "CommandStmt": true,
		"BinaryExpr": true, "UnaryExpr": true, "ColumnRef": true, "FuncCall": true,
		"CaseExpr": true, "SubqueryExpr": true, "ExistsExpr": true, "InExpr": true,
		"BetweenExpr": true, "LikeExpr": true, "IsNullExpr": true, "CTE": true,
		"WithClause": true, "Join": true, "OrderByItem": true, "WindowSpec": true,
	}

	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 || pkg.PkgPath == modulePath+"/pkg/core" {
			continue
		}
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			obj := scope.Lookup(name)
			typeName, ok := obj.(*types.TypeName)
			if !ok || !obj.Exported() || !typeName.IsAlias() || !forbidden[name] {
				continue
			}
			t.Errorf("package %s re-exports core.%s as an alias; use core.%s directly",
				strings.TrimPrefix(pkg.PkgPath, modulePath+"/"), name, name)
		}
	}
}

// TestGovernance_NodeKinds verifies every exported pkg/core struct that
// implements Node reports a distinct Kind.
func TestGovernance_NodeKinds(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes}
	pkgs, err := packages.Load(cfg, modulePath+"/pkg/core")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}
	if len(pkgs) != 1 {
		t.Fatalf("expected one package, got %d", len(pkgs))
	}

	scope := pkgs[0].Types.Scope()
	node, ok := scope.Lookup("Node").Type().Underlying().(*types.Interface)
	if !ok {
		t.Fatal("core.Node is not an interface")
	}

	implementers := 0
	for _, name := range scope.Names() {
		obj, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !obj.Exported() {
			continue
		}
		if _, isStruct := obj.Type().Underlying().(*types.Struct); !isStruct {
			continue
		}
		if types.Implements(types.NewPointer(obj.Type()), node) {
			implementers++
		}
	}
	if implementers < 40 {
		t.Errorf("expected at least 40 node variants, found %d", implementers)
	}
}
