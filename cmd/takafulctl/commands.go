package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hama-community/welfare/internal/client"
	"github.com/hama-community/welfare/internal/model"
)

// app is shared by every subcommand.  api and the controllers are built in
// the root PersistentPreRunE once flags are parsed.
type app struct {
	backend   string
	tokenFile string
	out       io.Writer

	store client.FileTokenStore
	api   *client.Client
	reg   *client.Registry
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "takafulctl", "token")
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "takafulctl",
		Short:         "Manage takaful solidarity benefits",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.store = client.FileTokenStore{Path: a.tokenFile}
			a.api = client.New(a.backend, a.store, nil)
			a.reg = client.NewRegistry(a.api)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.backend, "api", envOr("TAKAFUL_API", "http://localhost:8080"), "backend URL (without /api)")
	root.PersistentFlags().StringVar(&a.tokenFile, "token-file", envOr("TAKAFUL_TOKEN_FILE", defaultTokenFile()), "where the access token is kept")

	root.AddCommand(a.loginCmd(), a.logoutCmd(), a.benefitsCmd(), a.reasonsCmd(), a.familiesCmd())
	return root
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("TAKAFUL_PASSWORD")
			}
			tok, err := a.api.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.store.Save(tok); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "signed in")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or TAKAFUL_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.Clear()
		},
	}
}

func (a *app) benefitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "benefits",
		Aliases: []string{"b"},
		Short:   "List and update takaful benefits",
	}
	cmd.AddCommand(
		a.benefitsListCmd(),
		a.benefitsShowCmd(),
		a.benefitsAddCmd(),
		a.benefitsCloseCmd(),
		a.benefitsCancelCmd(),
		a.benefitsCandidatesCmd(),
		a.benefitsLinkCmd(),
		a.benefitsDeleteCmd(),
	)
	return cmd
}

func (a *app) benefitsListCmd() *cobra.Command {
	now := time.Now()
	var (
		f      client.Filters
		search string
		page   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the benefits of one month",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.reg.Fetch(cmd.Context(), f); err != nil {
				return err
			}
			if search != "" {
				if err := a.loadReasonLabels(cmd); err != nil {
					return err
				}
			}
			rows := a.reg.Search(search)
			a.reg.SetPage(page)

			c := a.reg.Counts()
			fmt.Fprintf(a.out, "total %d  open %d  inprogress %d  closed %d  cancelled %d\n",
				c.Total, c.Open, c.InProgress, c.Closed, c.Cancelled)
			printBenefits(a.out, a.reg.Page(rows))
			fmt.Fprintf(a.out, "page %d/%d\n", a.reg.CurrentPage(), client.PageCount(len(rows), client.PageSize))
			return nil
		},
	}
	cmd.Flags().IntVar(&f.Month, "month", int(now.Month()), "month 1-12")
	cmd.Flags().IntVar(&f.Year, "year", now.Year(), "year")
	cmd.Flags().StringVar(&f.ProviderType, "type", "all", "all, doctor, pharmacy or laboratory")
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter rows locally")
	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	return cmd
}

func (a *app) loadReasonLabels(cmd *cobra.Command) error {
	reasons, err := a.api.CancelReasons(cmd.Context(), false)
	if err != nil {
		return err
	}
	a.reg.SetReasonLabels(client.ReasonLabels(reasons))
	return nil
}

func (a *app) benefitsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one benefit and the actions it allows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.api.GetBenefit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printBenefit(a.out, *b)
			return nil
		},
	}
}

func (a *app) benefitsAddCmd() *cobra.Command {
	var (
		in       client.NewBenefit
		ptype    string
		btype    string
		family   string
		discount float64
		amount   float64
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new benefit",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.ProviderType = model.ProviderType(ptype)
			in.BenefitType = model.BenefitType(btype)
			if family != "" {
				in.FamilyID = &family
			}
			if cmd.Flags().Changed("discount") {
				in.DiscountPercentage = &discount
			}
			if cmd.Flags().Changed("amount") {
				in.OriginalAmount = &amount
			}
			b, err := a.reg.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "created %s (%s)\n", b.BenefitCode, b.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&ptype, "provider-type", "", "doctor, pharmacy or laboratory")
	cmd.Flags().StringVar(&in.ProviderID, "provider", "", "provider id")
	cmd.Flags().StringVar(&family, "family", "", "family id (optional)")
	cmd.Flags().StringVar(&in.BenefitDate, "date", time.Now().Format(model.DateLayout), "benefit date YYYY-MM-DD")
	cmd.Flags().StringVar(&btype, "type", string(model.BenefitFree), "free or discount")
	cmd.Flags().Float64Var(&discount, "discount", 0, "discount percentage (discount benefits only)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "original amount")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "free text")
	_ = cmd.MarkFlagRequired("provider-type")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func (a *app) benefitsCloseCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close an in-progress benefit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.changeStatus(cmd, args[0], model.ActionClose, func(s *client.StatusController) {
				s.SetNote(note)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "closing note")
	return cmd
}

func (a *app) benefitsCancelCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an open or in-progress benefit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.changeStatus(cmd, args[0], model.ActionCancel, func(s *client.StatusController) {
				s.SetReason(reason)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "cancel reason id (see: reasons list)")
	return cmd
}

func (a *app) changeStatus(cmd *cobra.Command, id string, action model.StatusAction, fill func(*client.StatusController)) error {
	b, err := a.api.GetBenefit(cmd.Context(), id)
	if err != nil {
		return err
	}
	s := client.NewStatusController(a.api, a.reg)
	if err := s.Open(*b, action); err != nil {
		return err
	}
	fill(s)
	if err := s.Submit(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %s\n", b.BenefitCode, action)
	return nil
}

func (a *app) linker(cmd *cobra.Command, id string) (*client.LinkController, []model.Family, error) {
	b, err := a.api.GetBenefit(cmd.Context(), id)
	if err != nil {
		return nil, nil, err
	}
	dir := client.NewDirectory(a.api)
	if err := dir.Load(cmd.Context()); err != nil {
		return nil, nil, err
	}
	l := client.NewLinkController(a.api, dir, a.reg)
	candidates, err := l.Open(*b)
	return l, candidates, err
}

func (a *app) benefitsCandidatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "candidates <id>",
		Short: "List the families a benefit can be linked to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, families, err := a.linker(cmd, args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNUMBER\tNAME\tMEMBERS")
			for _, f := range families {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", f.ID, f.FamilyNumber, f.Name, f.MembersCount)
			}
			return w.Flush()
		},
	}
}

func (a *app) benefitsLinkCmd() *cobra.Command {
	var family string
	cmd := &cobra.Command{
		Use:   "link <id>",
		Short: "Attach a family from the provider's neighborhood",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, _, err := a.linker(cmd, args[0])
			if err != nil {
				return err
			}
			if family != "" {
				if err := l.Select(family); err != nil {
					return err
				}
			}
			if err := l.Submit(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "linked %s to family %s\n", args[0], family)
			return nil
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "family id (see: benefits candidates)")
	return cmd
}

func (a *app) benefitsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an open benefit with no family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.api.GetBenefit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.reg.Delete(cmd.Context(), *b); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", b.BenefitCode)
			return nil
		},
	}
}

func (a *app) reasonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reasons",
		Short: "Manage the cancel-reason catalog",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List cancel reasons",
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := client.NewReasonCatalog(a.api).List(cmd.Context(), !all)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tACTIVE")
			for _, r := range rs {
				fmt.Fprintf(w, "%s\t%s\t%t\n", r.ID, r.Name, r.IsActive)
			}
			return w.Flush()
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include inactive reasons")

	var description string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a cancel reason (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := client.NewReasonCatalog(a.api).Create(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "created %s\n", r.ID)
			return nil
		},
	}
	add.Flags().StringVar(&description, "description", "", "longer explanation")

	toggle := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Activate or deactivate a cancel reason (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := client.NewReasonCatalog(a.api).Toggle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s active=%t\n", r.ID, r.IsActive)
			return nil
		},
	}

	cmd.AddCommand(list, add, toggle)
	return cmd
}

func (a *app) familiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "families",
		Short: "Manage the family registry",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered families",
		RunE: func(cmd *cobra.Command, args []string) error {
			families, err := a.api.Families(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNUMBER\tNAME\tMEMBERS\tNEIGHBORHOOD\tSTATUS")
			for _, f := range families {
				nbh := "-"
				if f.NeighborhoodID != nil {
					nbh = *f.NeighborhoodID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", f.ID, f.FamilyNumber, f.Name, f.MembersCount, nbh, f.Status)
			}
			return w.Flush()
		},
	}

	var (
		in           client.NewFamily
		neighborhood string
	)
	add := &cobra.Command{
		Use:   "add <number> <name>",
		Short: "Register a family",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.FamilyNumber, in.Name = args[0], args[1]
			if neighborhood != "" {
				in.NeighborhoodID = &neighborhood
			}
			f, err := a.api.CreateFamily(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "created %s\n", f.ID)
			return nil
		},
	}
	add.Flags().IntVar(&in.MembersCount, "members", 1, "number of family members")
	add.Flags().Float64Var(&in.MonthlyNeed, "monthly-need", 0, "estimated monthly need")
	add.Flags().StringVar(&in.Description, "description", "", "free-text description")
	add.Flags().StringVar(&neighborhood, "neighborhood", "", "neighborhood id (defaults to your own)")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a family no benefit refers to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.DeleteFamily(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, del)
	return cmd
}

func printBenefits(out io.Writer, rows []model.TakafulBenefit) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tPROVIDER\tFAMILY\tTYPE\tSTATUS\tDATE")
	for _, b := range rows {
		family := "-"
		if b.FamilyNumber != nil {
			family = *b.FamilyNumber
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.BenefitCode, b.ProviderName, family, b.BenefitType, b.Status.Label(), b.BenefitDate)
	}
	_ = w.Flush()
}

func printBenefit(out io.Writer, b model.TakafulBenefit) {
	fmt.Fprintf(out, "code:      %s\n", b.BenefitCode)
	fmt.Fprintf(out, "provider:  %s %s (%s)\n", b.ProviderType.Label(), b.ProviderName, b.ProviderID)
	if b.FamilyNumber != nil {
		fmt.Fprintf(out, "family:    %s\n", *b.FamilyNumber)
	}
	fmt.Fprintf(out, "type:      %s", b.BenefitType)
	if b.DiscountPercentage != nil {
		fmt.Fprintf(out, " %.0f%%", *b.DiscountPercentage)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "status:    %s\n", b.Status.Label())
	if b.StatusNote != nil {
		fmt.Fprintf(out, "note:      %s\n", *b.StatusNote)
	}
	if b.CancelReasonName != nil {
		fmt.Fprintf(out, "reason:    %s\n", *b.CancelReasonName)
	}
	var actions []string
	for _, act := range model.AllowedActions(b.Status) {
		actions = append(actions, string(act))
	}
	if b.Deletable() {
		actions = append(actions, "delete")
	}
	if len(actions) > 0 {
		fmt.Fprintf(out, "actions:   %s\n", strings.Join(actions, ", "))
	}
}
