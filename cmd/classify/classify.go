package classify

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saathiconnect/saathi-go/internal/classifier"
	"github.com/saathiconnect/saathi-go/internal/conf"
)

// Command creates the classify command for suggesting a category for a
// single image.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [image.jpg]",
		Short: "Suggest an issue category for a photo",
		Long:  `Run the on-device category model against a single image and print the suggested issue category.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := classifier.NewEngine(settings.Classifier)
			defer engine.Close()
			if err := engine.Load(); err != nil {
				return err
			}

			category, ok := engine.Classify(cmd.Context(), args[0])
			if !ok {
				fmt.Println("No suggestion available for this image.")
				return nil
			}
			fmt.Printf("Suggested category: %s\n", category)
			return nil
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

// setupFlags configures flags specific to the classify command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVarP(&settings.Classifier.ModelPath, "model", "m", settings.Classifier.ModelPath, "Path to the TensorFlow Lite model")
	cmd.Flags().StringVarP(&settings.Classifier.LabelPath, "labels", "l", settings.Classifier.LabelPath, "Path to the label file")
	cmd.Flags().IntVarP(&settings.Classifier.Threads, "threads", "j", settings.Classifier.Threads, "Interpreter threads, 0 for automatic")
}
