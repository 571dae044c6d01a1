package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/distribution/reference"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockerpoller/pkg/filters"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// Messages reported for configuration problems.
const (
	MsgRegistryURLNotSpecified  = "Docker Registry url not specified"
	MsgRegistryNameNotSpecified = "Docker Registry name not specified"
	MsgImageNotSpecified        = "Docker image not specified"
	MsgImageEmpty               = "Docker image is empty"
	MsgRegistryURLInvalid       = "Docker Registry url must be an absolute http or https URL"
	MsgImageInvalid             = "Docker image is not a valid repository name"
	MsgTagFilterInvalid         = "Docker tag filter is not a valid regular expression"
)

// ErrInvalidConfig indicates a configuration that failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// validate is the shared validator instance.
var validate = newValidator()

// messages maps a key and failed validation tag to the reported message.
var messages = map[string]map[string]string{
	types.DockerRegistryURLKey: {
		"required":    MsgRegistryURLNotSpecified,
		"registryurl": MsgRegistryURLInvalid,
	},
	types.DockerRegistryNameKey: {
		"required": MsgRegistryNameNotSpecified,
	},
	types.DockerImageKey: {
		"required":  MsgImageNotSpecified,
		"imagename": MsgImageInvalid,
	},
	types.DockerTagFilterKey: {
		"tagfilter": MsgTagFilterInvalid,
	},
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their plugin configuration key.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if key := field.Tag.Get("key"); key != "" {
			return key
		}

		return field.Name
	})

	mustRegister(v, "registryurl", isRegistryURL)
	mustRegister(v, "imagename", isImageName)
	mustRegister(v, "tagfilter", isTagFilter)

	return v
}

func mustRegister(v *validator.Validate, tag string, fn func(string) bool) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register %s validation: %v", tag, err))
	}
}

func isRegistryURL(value string) bool {
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}

	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func isImageName(value string) bool {
	_, err := reference.WithName(value)

	return err == nil
}

func isTagFilter(value string) bool {
	_, err := filters.CompileTagFilter(value)

	return err == nil
}

// ValidateRepositoryValues validates raw repository configuration values, reporting missing
// keys before checking their contents.
func ValidateRepositoryValues(values map[string]string) types.ValidationResult {
	result := types.ValidationResult{}

	if _, ok := values[types.DockerRegistryURLKey]; !ok {
		result.AddError(types.DockerRegistryURLKey, MsgRegistryURLNotSpecified)

		return result
	}

	if _, ok := values[types.DockerRegistryNameKey]; !ok {
		result.AddError(types.DockerRegistryNameKey, MsgRegistryNameNotSpecified)

		return result
	}

	return ValidateRepository(RepositoryFromValues(values))
}

// ValidatePackageValues validates raw package configuration values.
func ValidatePackageValues(values map[string]string) types.ValidationResult {
	if _, ok := values[types.DockerImageKey]; !ok {
		result := types.ValidationResult{}
		result.AddError(types.DockerImageKey, MsgImageNotSpecified)

		return result
	}

	return ValidatePackage(PackageFromValues(values))
}

// ValidateRepository checks a repository configuration.
func ValidateRepository(repo types.RepositoryConfig) types.ValidationResult {
	return collect(validate.Struct(repo))
}

// ValidatePackage checks a package configuration. An empty or blank image is reported on its own.
func ValidatePackage(pkg types.PackageConfig) types.ValidationResult {
	if strings.TrimSpace(pkg.Image) == "" {
		result := types.ValidationResult{}
		result.AddError(types.DockerImageKey, MsgImageEmpty)

		return result
	}

	return collect(validate.Struct(pkg))
}

// Check validates both configurations, returning ErrInvalidConfig listing every problem.
func Check(pkg types.PackageConfig, repo types.RepositoryConfig) error {
	problems := append(ValidateRepository(repo).Messages(), ValidatePackage(pkg).Messages()...)
	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

// RepositoryFromValues builds a repository configuration from raw values.
func RepositoryFromValues(values map[string]string) types.RepositoryConfig {
	return types.RepositoryConfig{
		RegistryURL:  values[types.DockerRegistryURLKey],
		RegistryName: values[types.DockerRegistryNameKey],
	}
}

// PackageFromValues builds a package configuration from raw values.
func PackageFromValues(values map[string]string) types.PackageConfig {
	return types.PackageConfig{
		Image:     values[types.DockerImageKey],
		TagFilter: values[types.DockerTagFilterKey],
	}
}

// collect converts validator errors into a ValidationResult.
func collect(err error) types.ValidationResult {
	result := types.ValidationResult{}
	if err == nil {
		return result
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		logrus.WithError(err).Debug("Unexpected validation failure")
		result.AddError("", err.Error())

		return result
	}

	for _, fieldError := range fieldErrors {
		key := fieldError.Field()

		message, ok := messages[key][fieldError.Tag()]
		if !ok {
			message = fmt.Sprintf("%s failed %s validation", key, fieldError.Tag())
		}

		result.AddError(key, message)
	}

	return result
}
