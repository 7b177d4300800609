package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pindex/internal/types"
	"github.com/hyperengineering/pindex/internal/validation"
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage checklist categories",
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories in display order",
	Args:  cobra.NoArgs,
	RunE:  runCategoryList,
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a custom category",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoryAdd,
}

func init() {
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryAddCmd)
}

func runCategoryList(cmd *cobra.Command, args []string) error {
	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	categories, err := s.ListCategories(context.Background())
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}

	if jsonOutput {
		if categories == nil {
			categories = []types.Category{}
		}
		return printJSON(cmd.OutOrStdout(), categories)
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ORDER\tID\tNAME\tBUILTIN")
	for _, c := range categories {
		builtin := "no"
		if c.Builtin {
			builtin = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.SortOrder, c.ID, c.Name, builtin)
	}
	return w.Flush()
}

func runCategoryAdd(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if errs := validation.ValidateCategoryName(name); len(errs) > 0 {
		return fmt.Errorf("invalid category: %s: %s", errs[0].Field, errs[0].Message)
	}

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := s.CreateCategory(context.Background(), name)
	if err != nil {
		return fmt.Errorf("add category %q: %w", name, err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), c)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added category %q (id: %s, order: %d)\n", c.Name, c.ID, c.SortOrder)
	return nil
}
