package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/results"
)

func (cli *commandLine) studentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Manage the class roster",
	}
	cmd.AddCommand(cli.addStudentCmd())
	return cmd
}

func (cli *commandLine) addStudentCmd() *cobra.Command {
	var s results.Student

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Enroll a student in a class",
		RunE: func(cmd *cobra.Command, args []string) error {
			s.SchoolID = core.CleanString(s.SchoolID)
			s.ClassID = core.CleanString(s.ClassID)
			s.AdmissionNumber = core.CleanString(s.AdmissionNumber)
			s.Name = core.CleanString(s.Name)

			stored, err := cli.svcs.Roster.AddStudent(cmd.Context(), s)
			if err != nil {
				return err
			}
			return cli.printJSON(stored)
		},
	}
	cmd.Flags().StringVar(&s.SchoolID, "school", "", "School ID (required)")
	cmd.Flags().StringVar(&s.ClassID, "class", "", "Class ID (required)")
	cmd.Flags().StringVar(&s.AdmissionNumber, "admission-number", "", "Admission number (required)")
	cmd.Flags().StringVar(&s.Name, "name", "", "Student name (required)")
	for _, name := range []string{"school", "class", "admission-number", "name"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
