// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("main.name", "Saathi")
	v.SetDefault("main.log.enabled", true)
	v.SetDefault("main.log.path", "logs/saathi.log")

	v.SetDefault("location.geocoderurl", "https://nominatim.openstreetmap.org")
	v.SetDefault("location.cachettl", 15*time.Minute)
	v.SetDefault("location.minquerylength", 5)
	v.SetDefault("location.fixtimeout", 15*time.Second)

	v.SetDefault("classifier.modelpath", "model/saathi_categories.tflite")
	v.SetDefault("classifier.labelpath", "model/labels.txt")
	v.SetDefault("classifier.inputsize", 224)
	v.SetDefault("classifier.threads", 0)
	v.SetDefault("classifier.usexnnpack", true)

	v.SetDefault("submission.baseurl", "https://api.saathiconnect.in")
	v.SetDefault("submission.endpoint", "/api/reports")
	v.SetDefault("submission.anonymousendpoint", "/api/reports/anonymous")
	v.SetDefault("submission.timeout", 45*time.Second)
}
