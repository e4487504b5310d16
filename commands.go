package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-portal/library"
	"library-portal/library/api"
	"library-portal/library/config"
	"library-portal/library/console"
	"library-portal/library/portal"
)

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s ID: %s", what, s)
	}
	return id, nil
}

func authCommands(get func() *app) []*cobra.Command {
	login := &cobra.Command{
		Use:   "login [email]",
		Short: "Log in and remember the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := bufio.NewScanner(cmd.InOrStdin())
			email := ""
			if len(args) == 1 {
				email = args[0]
			} else if email = prompt(sc, cmd.OutOrStdout(), "Email: "); email == "" {
				return fmt.Errorf("email is required")
			}
			password, err := console.ReadPassword(cmd.InOrStdin(), sc, cmd.OutOrStdout(), "Password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			get().login(cmd.Context(), cmd.OutOrStdout(), email, password)
			return nil
		},
	}

	var name string
	signup := &cobra.Command{
		Use:   "signup <email>",
		Short: "Create a reader account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := bufio.NewScanner(cmd.InOrStdin())
			password, err := console.ReadPassword(cmd.InOrStdin(), sc, cmd.OutOrStdout(), "Password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			confirm, err := console.ReadPassword(cmd.InOrStdin(), sc, cmd.OutOrStdout(), "Confirm password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if password != confirm {
				return fmt.Errorf("passwords do not match")
			}
			get().signup(cmd.Context(), cmd.OutOrStdout(), name, args[0], password)
			return nil
		},
	}
	signup.Flags().StringVar(&name, "name", "", "display name")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			get().logout(cmd.OutOrStdout())
		},
	}

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printSession(cmd.OutOrStdout(), get())
		},
	}
	return []*cobra.Command{login, signup, logout, whoami}
}

func readerCommands(get func() *app) []*cobra.Command {
	var filter library.BookFilter
	books := &cobra.Command{
		Use:   "books",
		Short: "Browse the catalog",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			get().catalog(cmd.Context(), cmd.OutOrStdout(), filter)
		},
	}
	books.Flags().StringVarP(&filter.Query, "query", "q", "", "match title, author or genre")
	books.Flags().StringVar(&filter.CategoryID, "category", "", "category ID")
	books.Flags().StringVar(&filter.Language, "language", "", "language")

	book := &cobra.Command{
		Use:   "book <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			get().bookDetails(cmd.Context(), cmd.OutOrStdout(), id)
			return nil
		},
	}

	var days int
	reserve := &cobra.Command{
		Use:   "reserve <book-id>",
		Short: "Reserve a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			get().reserve(cmd.Context(), cmd.OutOrStdout(), id, days)
			return nil
		},
	}
	reserve.Flags().IntVar(&days, "days", 14, fmt.Sprintf("loan length, one of %v", portal.ReservationDays))

	profile := &cobra.Command{
		Use:   "profile",
		Short: "Show your reservations",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			get().profile(cmd.Context(), cmd.OutOrStdout())
		},
	}

	ret := &cobra.Command{
		Use:   "return <reservation-id>",
		Short: "Return a reserved book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "reservation")
			if err != nil {
				return err
			}
			a := get()
			a.notice(cmd.OutOrStdout(), func() portal.Notice { return a.portal.ReturnBook(cmd.Context(), id) })
			return nil
		},
	}
	return []*cobra.Command{books, book, reserve, profile, ret}
}

func adminCommand(get func() *app) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Librarian tools",
	}

	admin.AddCommand(&cobra.Command{
		Use:   "dashboard",
		Short: "Library counters",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			get().dashboard(cmd.Context(), cmd.OutOrStdout())
		},
	})
	admin.AddCommand(adminBookCommands(get)...)
	admin.AddCommand(adminCategoryCommands(get)...)
	admin.AddCommand(adminUserCommands(get)...)
	admin.AddCommand(adminReservationCommands(get)...)
	return admin
}

// idAction builds a subcommand taking a single ID and producing a notice.
func idAction(get func() *app, use, short, what string, act func(a *app, cmd *cobra.Command, id int64) portal.Notice) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], what)
			if err != nil {
				return err
			}
			a := get()
			a.notice(cmd.OutOrStdout(), func() portal.Notice { return act(a, cmd, id) })
			return nil
		},
	}
}

func bookFormFlags(cmd *cobra.Command, form *api.BookForm, status *string, cover *string) {
	f := cmd.Flags()
	f.StringVar(&form.Title, "title", "", "title")
	f.StringVar(&form.Author, "author", "", "author")
	f.StringVar(&form.Genre, "genre", "", "genre")
	f.StringVar(&form.Language, "language", "", "language")
	f.StringVar(&form.ISBN, "isbn", "", "ISBN")
	f.StringVar(&form.CategoryID, "category", "", "category ID")
	f.StringVar(&form.ImageURL, "image-url", "", "existing cover path on the server")
	f.StringVar(status, "status", string(library.BookAvailable), "AVAILABLE or RESERVED")
	f.StringVar(cover, "cover", "", "image file to upload as the cover")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("author")
}

func adminBookCommands(get func() *app) []*cobra.Command {
	var query string
	list := &cobra.Command{
		Use:   "books",
		Short: "List books",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			get().adminBooks(cmd.Context(), cmd.OutOrStdout(), query)
		},
	}
	list.Flags().StringVarP(&query, "query", "q", "", "match title or author")

	var (
		addForm            api.BookForm
		addStatus, addFile string
	)
	add := &cobra.Command{
		Use:   "add-book",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			addForm.Status = library.BookStatus(strings.ToUpper(addStatus))
			get().saveBook(cmd.Context(), cmd.OutOrStdout(), 0, addForm, addFile)
		},
	}
	bookFormFlags(add, &addForm, &addStatus, &addFile)

	var (
		editForm             api.BookForm
		editStatus, editFile string
	)
	edit := &cobra.Command{
		Use:   "edit-book <id>",
		Short: "Replace a book's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			editForm.Status = library.BookStatus(strings.ToUpper(editStatus))
			get().saveBook(cmd.Context(), cmd.OutOrStdout(), id, editForm, editFile)
			return nil
		},
	}
	bookFormFlags(edit, &editForm, &editStatus, &editFile)

	del := idAction(get, "delete-book <id>", "Delete a book", "book", func(a *app, cmd *cobra.Command, id int64) portal.Notice {
		return a.portal.DeleteBook(cmd.Context(), id)
	})

	status := &cobra.Command{
		Use:   "set-status <id> <AVAILABLE|RESERVED>",
		Short: "Change a book's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			st := library.BookStatus(strings.ToUpper(args[1]))
			a := get()
			a.notice(cmd.OutOrStdout(), func() portal.Notice { return a.portal.SetBookStatus(cmd.Context(), id, st) })
			return nil
		},
	}
	return []*cobra.Command{list, add, edit, del, status}
}

func adminCategoryCommands(get func() *app) []*cobra.Command {
	list := &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			get().categories(cmd.Context(), cmd.OutOrStdout())
		},
	}
	add := &cobra.Command{
		Use:   "add-category <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a := get()
			a.notice(cmd.OutOrStdout(), func() portal.Notice { return a.portal.AddCategory(cmd.Context(), args[0]) })
		},
	}
	rename := &cobra.Command{
		Use:   "rename-category <id> <name>",
		Short: "Rename a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "category")
			if err != nil {
				return err
			}
			a := get()
			a.notice(cmd.OutOrStdout(), func() portal.Notice { return a.portal.EditCategory(cmd.Context(), id, args[1]) })
			return nil
		},
	}
	del := idAction(get, "delete-category <id>", "Delete a category", "category", func(a *app, cmd *cobra.Command, id int64) portal.Notice {
		return a.portal.DeleteCategory(cmd.Context(), id)
	})
	return []*cobra.Command{list, add, rename, del}
}

func adminUserCommands(get func() *app) []*cobra.Command {
	var filter library.UserFilter
	list := &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			filter.Role = strings.ToUpper(filter.Role)
			filter.Status = strings.ToUpper(filter.Status)
			get().users(cmd.Context(), cmd.OutOrStdout(), filter)
		},
	}
	list.Flags().StringVarP(&filter.Query, "query", "q", "", "match email")
	list.Flags().StringVar(&filter.Role, "role", library.FilterAll, "ALL, USER or LIBRARIAN")
	list.Flags().StringVar(&filter.Status, "status", library.FilterAll, "ALL, ACTIVE or BLACKLISTED")

	return []*cobra.Command{
		list,
		idAction(get, "blacklist <user-id>", "Blacklist a user", "user", func(a *app, cmd *cobra.Command, id int64) portal.Notice {
			return a.portal.SetBlacklisted(cmd.Context(), id, true)
		}),
		idAction(get, "unblacklist <user-id>", "Lift a blacklist", "user", func(a *app, cmd *cobra.Command, id int64) portal.Notice {
			return a.portal.SetBlacklisted(cmd.Context(), id, false)
		}),
		idAction(get, "delete-user <user-id>", "Delete a user", "user", func(a *app, cmd *cobra.Command, id int64) portal.Notice {
			return a.portal.DeleteUser(cmd.Context(), id)
		}),
	}
}

func adminReservationCommands(get func() *app) []*cobra.Command {
	var filter library.ReservationFilter
	list := &cobra.Command{
		Use:   "reservations",
		Short: "List reservations",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			filter.Status = strings.ToUpper(filter.Status)
			get().reservations(cmd.Context(), cmd.OutOrStdout(), filter)
		},
	}
	list.Flags().StringVarP(&filter.Query, "query", "q", "", "match book title or user email")
	list.Flags().StringVar(&filter.Status, "status", library.FilterAll, "ALL, ACTIVE or RETURNED")

	return []*cobra.Command{
		list,
		idAction(get, "mark-returned <reservation-id>", "Mark a reservation returned", "reservation", func(a *app, cmd *cobra.Command, id int64) portal.Notice {
			return a.portal.MarkReturned(cmd.Context(), id)
		}),
		idAction(get, "delete-reservation <reservation-id>", "Delete a reservation", "reservation", func(a *app, cmd *cobra.Command, id int64) portal.Notice {
			return a.portal.DeleteReservation(cmd.Context(), id)
		}),
	}
}

func envCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the environment variables the client reads",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.Usage())
		},
	}
}
