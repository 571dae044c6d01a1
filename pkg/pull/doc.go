// Package pull pulls the images of packages delivered to a build agent.
//
// The build host exports each package material as environment variables:
//
//	GO_REPO_<ID>_DOCKER_REGISTRY_NAME   registry host
//	GO_PACKAGE_<ID>_DOCKER_IMAGE        image repository
//	GO_PACKAGE_<ID>_LABEL               revision (tag)
//
// ProvidedPackages lists the package ids, ImageName builds the image reference and
// Puller pulls it through the Docker Engine API with credentials from the Docker config.
package pull
