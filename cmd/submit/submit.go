package submit

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saathiconnect/saathi-go/internal/classifier"
	"github.com/saathiconnect/saathi-go/internal/conf"
	"github.com/saathiconnect/saathi-go/internal/errors"
	"github.com/saathiconnect/saathi-go/internal/geo"
	"github.com/saathiconnect/saathi-go/internal/imagecapture"
	"github.com/saathiconnect/saathi-go/internal/location"
	"github.com/saathiconnect/saathi-go/internal/report"
	"github.com/saathiconnect/saathi-go/internal/submission"
)

type submitOptions struct {
	description string
	category    string
	latitude    float64
	longitude   float64
	address     string
	token       string
}

// Command creates the submit command for sending a report from an image
// file on disk.
func Command(settings *conf.Settings) *cobra.Command {
	opts := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit [image.jpg]",
		Short: "Submit a civic issue report",
		Long: `Build a report from an image file, a description and a location,
evaluate its location authenticity, and upload it to the backend.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), settings, opts, args[0])
		},
	}

	setupFlags(cmd, opts)

	return cmd
}

func setupFlags(cmd *cobra.Command, opts *submitOptions) {
	cmd.Flags().StringVarP(&opts.description, "description", "m", "", "Issue description")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "Issue category (Pothole, Garbage, Streetlight, Other); suggested from the image when omitted")
	cmd.Flags().Float64Var(&opts.latitude, "lat", 0, "Claimed latitude")
	cmd.Flags().Float64Var(&opts.longitude, "lon", 0, "Claimed longitude")
	cmd.Flags().StringVarP(&opts.address, "address", "a", "", "Address text; reverse geocoded from the coordinates when omitted")
	cmd.Flags().StringVarP(&opts.token, "token", "t", "", "Bearer token; the report is anonymous when omitted")

	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
}

func runSubmit(ctx context.Context, settings *conf.Settings, opts *submitOptions, imagePath string) error {
	geocoder := location.NewGeocoder(settings.Location)
	defer geocoder.Close()
	locator := location.NewService(noPosition{}, geocoder)

	capturer := imagecapture.NewService(noCamera{}, &fileLibrary{path: imagePath}, noPosition{})
	defer capturer.Close()

	engine := classifier.NewEngine(settings.Classifier)
	defer engine.Close()
	if err := engine.Load(); err != nil {
		// Suggestions are best effort, the category flag still works.
		fmt.Println("Category model unavailable, pass --category explicitly.")
	}

	client := submission.NewClient(settings.Submission)
	defer client.Close()

	identity := report.Guest()
	if opts.token != "" {
		identity = report.Authenticated(opts.token)
	}

	controller := report.NewController(capturer, locator, geocoder, engine,
		client, submission.NewProbeReachability(settings.Submission.BaseURL), identity)
	defer controller.Close()

	if err := controller.StartLibraryCapture(ctx); err != nil {
		return err
	}
	controller.SetDescription(opts.description)

	if opts.category != "" {
		category, ok := report.ParseCategory(opts.category)
		if !ok {
			return errors.Newf("unknown category %q", opts.category).
				Component("report").
				Category(errors.CategoryValidation).
				Build()
		}
		controller.SetCategory(category)
	} else {
		controller.WaitForSuggestions()
		if !controller.Snapshot().Category.Known() {
			return errors.Newf("no category suggestion for this image, pass --category").
				Component("report").
				Category(errors.CategoryValidation).
				Build()
		}
	}

	point := geo.NewPoint(opts.latitude, opts.longitude)
	if opts.address != "" {
		controller.SetClaimedLocation(point, opts.address)
	} else {
		controller.ApplyPickedLocation(ctx, point)
	}

	draft := controller.Snapshot()
	fmt.Printf("Location authenticity: %s\n", draft.Authenticity())

	if err := controller.Submit(ctx); err != nil {
		return err
	}
	fmt.Println("Report submitted.")
	return nil
}

// fileLibrary serves an on-disk image as a photo library pick.
type fileLibrary struct {
	path string
}

func (f *fileLibrary) Pick(_ context.Context) (imagecapture.Handle, error) {
	gps, err := imagecapture.ExtractGPSFromFile(f.path)
	if err != nil {
		return imagecapture.Handle{}, err
	}
	return imagecapture.Handle{URI: f.path, EXIFGPS: gps}, nil
}

// noCamera rejects camera capture, the CLI only submits existing files.
type noCamera struct{}

func (noCamera) Capture(_ context.Context) (imagecapture.Handle, error) {
	return imagecapture.Handle{}, errors.Newf("camera capture is not available from the command line").
		Component("imagecapture").
		Category(errors.CategoryImageCapture).
		Build()
}

// noPosition reports that device GPS is unavailable.
type noPosition struct{}

func (noPosition) CurrentPosition(_ context.Context, _ location.Accuracy) (geo.Point, error) {
	return geo.Point{}, location.Unavailable(errors.NewStd("no positioning hardware"))
}
